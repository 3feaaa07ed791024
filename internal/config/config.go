package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Scheduler Scheduler `yaml:"scheduler"`
	Breaker   Breaker   `yaml:"breaker"`
	Drafts    Drafts    `yaml:"drafts"`
	S3        S3        `yaml:"s3"`
	LinkedIn  LinkedIn  `yaml:"linkedin"`
	Threads   Threads   `yaml:"threads"`
	Telegram  Telegram  `yaml:"telegram"`
	Calendar  Calendar  `yaml:"calendar"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration.
// PostgresDSN is optional; when empty the schedule queue falls back to
// the in-memory repository (single-process development mode).
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	// SQLite file backing the durable draft backup store.
	SQLitePath string `yaml:"sqlite_path" env:"DRAFT_BACKUP_PATH" env-default:"data/drafts.db"`
}

// Scheduler holds publish scheduler configuration
type Scheduler struct {
	Enabled       bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Interval      time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"1m"`
	RetentionDays int           `yaml:"retention_days" env:"SCHEDULER_RETENTION_DAYS" env-default:"7"`
}

// Breaker holds circuit breaker configuration
type Breaker struct {
	Threshold int           `yaml:"threshold" env:"BREAKER_THRESHOLD" env-default:"3"`
	Lookback  time.Duration `yaml:"lookback" env:"BREAKER_LOOKBACK" env-default:"10m"`
	Cooldown  time.Duration `yaml:"cooldown" env:"BREAKER_COOLDOWN" env-default:"30m"`
}

// Drafts holds draft store configuration
type Drafts struct {
	MaxIterations int           `yaml:"max_iterations" env:"DRAFT_MAX_ITERATIONS" env-default:"3"`
	MaxDrafts     int           `yaml:"max_drafts" env:"DRAFT_MAX_DRAFTS" env-default:"50"`
	MaxAge        time.Duration `yaml:"max_age" env:"DRAFT_MAX_AGE" env-default:"24h"`
}

// S3 holds S3/MinIO storage configuration for draft images
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/media"`
}

// LinkedIn holds credentials for the LinkedIn channel
type LinkedIn struct {
	BaseURL     string `yaml:"base_url" env:"LINKEDIN_BASE_URL" env-default:"https://api.linkedin.com"`
	AccessToken string `yaml:"access_token" env:"LINKEDIN_ACCESS_TOKEN"`
	AuthorURN   string `yaml:"author_urn" env:"LINKEDIN_AUTHOR_URN"`
}

// Threads holds credentials for the Threads channel
type Threads struct {
	BaseURL     string `yaml:"base_url" env:"THREADS_BASE_URL" env-default:"https://graph.threads.net"`
	AccessToken string `yaml:"access_token" env:"THREADS_ACCESS_TOKEN"`
	UserID      string `yaml:"user_id" env:"THREADS_USER_ID"`
}

// Telegram holds bot credentials for the Telegram channel and for
// operator notifications
type Telegram struct {
	BaseURL   string `yaml:"base_url" env:"TELEGRAM_BASE_URL" env-default:"https://api.telegram.org"`
	BotToken  string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChannelID string `yaml:"channel_id" env:"TELEGRAM_CHANNEL_ID"`

	// Operator chat that receives publish summaries. Empty disables
	// notifications.
	NotifyChatID string `yaml:"notify_chat_id" env:"TELEGRAM_NOTIFY_CHAT_ID"`
}

// Calendar holds the content calendar collaborator endpoint.
// Empty base URL disables calendar integration.
type Calendar struct {
	BaseURL string `yaml:"base_url" env:"CALENDAR_BASE_URL"`
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
