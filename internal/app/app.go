package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postline/internal/config"
	httpcontroller "github.com/vadim/postline/internal/controller/http"
	"github.com/vadim/postline/internal/database"
	draftdao "github.com/vadim/postline/internal/domain/draft/dao"
	draftservice "github.com/vadim/postline/internal/domain/draft/service"
	"github.com/vadim/postline/internal/domain/publish/policy"
	"github.com/vadim/postline/internal/domain/publish/scheduler"
	scheduledao "github.com/vadim/postline/internal/domain/schedule/dao"
	scheduleservice "github.com/vadim/postline/internal/domain/schedule/service"
	"github.com/vadim/postline/internal/httpx/upstream/calendar"
	"github.com/vadim/postline/internal/httpx/upstream/linkedin"
	"github.com/vadim/postline/internal/httpx/upstream/telegram"
	"github.com/vadim/postline/internal/httpx/upstream/threads"
	"github.com/vadim/postline/internal/publisher"
	"github.com/vadim/postline/internal/safety"
	"github.com/vadim/postline/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	// Infrastructure held for shutdown
	pg       *pgxpool.Pool
	backupDB *sql.DB

	// Domain layers
	drafts        *draftservice.Service
	schedule      *scheduleservice.Service
	registry      *publisher.Registry
	breaker       *safety.Breaker
	publishPolicy *policy.Policy
	images        *storage.ImageStore

	// Background worker for due schedule entries
	scheduler *scheduler.Scheduler
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Scheduler.Enabled {
		app.scheduler = scheduler.New(app.publishPolicy, cfg.Scheduler.Interval, logger)
	}

	return app, nil
}

// initInfrastructure initializes storage backends
func (a *App) initInfrastructure(ctx context.Context) error {
	// SQLite backup for drafts is always on; drafts must survive
	// restarts even in the zero-config development setup.
	backupDB, err := database.NewSQLite(a.cfg.Database.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening draft backup database: %w", err)
	}
	a.backupDB = backupDB

	// Postgres is optional; without it the schedule queue lives in
	// memory and does not survive restarts.
	if a.cfg.Database.PostgresDSN != "" {
		pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pg = pool
	} else {
		a.logger.Warn("DATABASE_URL not set, schedule queue will not survive restarts")
	}

	images, err := storage.NewImageStore(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("initializing image store: %w", err)
	}
	a.images = images

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	backup, err := draftdao.NewBackupSQLite(a.backupDB)
	if err != nil {
		return fmt.Errorf("initializing draft backup store: %w", err)
	}

	a.drafts = draftservice.New(backup, a.logger, draftservice.Options{
		MaxIterations: a.cfg.Drafts.MaxIterations,
		MaxDrafts:     a.cfg.Drafts.MaxDrafts,
		MaxAge:        a.cfg.Drafts.MaxAge,
	})

	var entries scheduledao.EntryRepository
	if a.pg != nil {
		repo := scheduledao.NewEntryPostgres(a.pg)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("initializing schedule schema: %w", err)
		}
		entries = repo
	} else {
		entries = scheduledao.NewEntryMemory()
	}
	a.schedule = scheduleservice.New(entries, a.logger)

	a.registry = a.buildRegistry()
	a.breaker = safety.New(
		a.cfg.Breaker.Threshold,
		a.cfg.Breaker.Lookback,
		a.cfg.Breaker.Cooldown,
		safety.WithLogger(a.logger),
	)

	var cal policy.Calendar
	if a.cfg.Calendar.BaseURL != "" {
		cal = calendar.New(a.cfg.Calendar.BaseURL)
	}

	var notifier policy.Notifier
	if a.cfg.Telegram.BotToken != "" && a.cfg.Telegram.NotifyChatID != "" {
		tgClient := telegram.New(a.cfg.Telegram.BotToken, telegram.WithBaseURL(a.cfg.Telegram.BaseURL))
		notifier = telegram.NewNotifier(tgClient, a.cfg.Telegram.NotifyChatID)
	}

	a.publishPolicy = policy.New(
		a.drafts,
		a.schedule,
		a.registry,
		a.breaker,
		cal,
		notifier,
		a.cfg.Scheduler.RetentionDays,
		a.logger,
	)

	return nil
}

// buildRegistry registers a publisher for every channel that has
// credentials configured. Unconfigured channels stay unknown and fail
// per-leg at publish time.
func (a *App) buildRegistry() *publisher.Registry {
	registry := publisher.NewRegistry()

	if a.cfg.LinkedIn.AccessToken != "" && a.cfg.LinkedIn.AuthorURN != "" {
		client := linkedin.New(a.cfg.LinkedIn.AccessToken, linkedin.WithBaseURL(a.cfg.LinkedIn.BaseURL))
		registry.Register(linkedin.NewPublisher(client, a.cfg.LinkedIn.AuthorURN))
	}

	if a.cfg.Threads.AccessToken != "" && a.cfg.Threads.UserID != "" {
		client := threads.New(a.cfg.Threads.AccessToken, threads.WithBaseURL(a.cfg.Threads.BaseURL))
		registry.Register(threads.NewPublisher(client, a.cfg.Threads.UserID))
	}

	if a.cfg.Telegram.BotToken != "" && a.cfg.Telegram.ChannelID != "" {
		client := telegram.New(a.cfg.Telegram.BotToken, telegram.WithBaseURL(a.cfg.Telegram.BaseURL))
		registry.Register(telegram.NewPublisher(client, a.cfg.Telegram.ChannelID))
	}

	a.logger.Info("channel publishers registered", "channels", registry.Names())
	return registry
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	swaggerHandler := httpcontroller.NewSwaggerHandler("Postline Publishing API", OpenAPISpec)
	swaggerHandler.RegisterRoutes(a.router)

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		draftHandler := httpcontroller.NewDraftHandler(a.drafts, a.publishPolicy, a.schedule, a.images)
		draftHandler.RegisterRoutes(r)

		scheduleHandler := httpcontroller.NewScheduleHandler(a.schedule)
		scheduleHandler.RegisterRoutes(r)

		statusHandler := httpcontroller.NewStatusHandler(a.breaker, a.drafts, a.schedule, a.registry)
		statusHandler.RegisterRoutes(r)
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.pg != nil {
		if err := a.pg.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	// Stop the worker first so no pass is in flight when storage closes.
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.pg != nil {
		a.pg.Close()
	}
	if a.backupDB != nil {
		if err := a.backupDB.Close(); err != nil {
			a.logger.Error("failed to close backup database", "error", err)
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
