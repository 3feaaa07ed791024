// Package service implements the schedule queue: future publish
// instructions consumed by the background loop exactly once.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/postline/internal/domain/schedule/dao"
	"github.com/vadim/postline/internal/domain/schedule/entity"
)

// DefaultRetentionDays is how long resolved entries are kept before cleanup.
const DefaultRetentionDays = 7

// Service handles business logic for the schedule queue
type Service struct {
	entries dao.EntryRepository
	logger  *slog.Logger

	now func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a schedule service backed by the given repository.
func New(entries dao.EntryRepository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		entries: entries,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule appends a scheduled entry for the draft and persists it.
// The publish time is normalized to UTC.
func (s *Service) Schedule(ctx context.Context, draftID string, channels []string, publishAt time.Time) (*entity.Entry, error) {
	if draftID == "" {
		return nil, entity.ErrEmptyDraftID
	}
	if len(channels) == 0 {
		return nil, entity.ErrNoChannels
	}

	now := s.now().UTC()
	e := &entity.Entry{
		ID:        uuid.New().String(),
		DraftID:   draftID,
		Channels:  channels,
		PublishAt: publishAt.UTC(),
		Status:    entity.EntryStatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.entries.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("post scheduled",
		"entry_id", e.ID,
		"draft_id", draftID,
		"publish_at", e.PublishAt,
		"channels", channels,
	)
	return e, nil
}

// GetDue returns all scheduled entries whose publish time has arrived.
func (s *Service) GetDue(ctx context.Context) ([]entity.Entry, error) {
	return s.entries.GetDue(ctx, s.now().UTC())
}

// Get retrieves an entry by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Entry, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, entity.ErrEntryNotFound
	}
	return e, nil
}

// MarkPublished moves an entry to its published terminal status. The
// bool result reports whether the transition actually happened; calling
// it on an already-terminal entry is a no-op so completion side effects
// run at most once per entry.
func (s *Service) MarkPublished(ctx context.Context, id string) (bool, error) {
	return s.entries.Transition(ctx, id, entity.EntryStatusPublished, "")
}

// MarkFailed moves an entry to its failed terminal status with a reason.
// No-op on already-terminal entries.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	return s.entries.Transition(ctx, id, entity.EntryStatusFailed, reason)
}

// Cancel cancels a scheduled entry. Only legal while scheduled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	changed, err := s.entries.Transition(ctx, id, entity.EntryStatusCancelled, "")
	if err != nil {
		return err
	}
	if !changed {
		return entity.ErrEntryAlreadyResolved
	}
	s.logger.Info("schedule entry cancelled", "entry_id", id)
	return nil
}

// ListPending returns all entries still waiting to be published.
func (s *Service) ListPending(ctx context.Context) ([]entity.Entry, error) {
	return s.entries.ListPending(ctx)
}

// CleanupOld removes resolved entries older than the retention window.
// Scheduled entries are never removed regardless of age.
func (s *Service) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)

	removed, err := s.entries.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("cleaned up old schedule entries", "count", removed)
	}
	return removed, nil
}

// TimeFromOffset converts a schedule offset key to an absolute UTC time.
// Known keys: "now", "1h", "3h", "tomorrow" (next day 10:00 UTC),
// "evening" (today 18:00 UTC, or now if already past). Unknown keys
// fall back to now.
func (s *Service) TimeFromOffset(key string) time.Time {
	now := s.now().UTC()
	switch key {
	case "1h":
		return now.Add(time.Hour)
	case "3h":
		return now.Add(3 * time.Hour)
	case "tomorrow":
		next := now.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), 10, 0, 0, 0, time.UTC)
	case "evening":
		evening := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC)
		if evening.Before(now) {
			return now
		}
		return evening
	default:
		return now
	}
}
