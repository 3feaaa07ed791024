// Package service implements the draft store: the single source of
// truth for a draft's content and status, enforcing the edit/approval
// state machine.
package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/postline/internal/domain/draft/dao"
	"github.com/vadim/postline/internal/domain/draft/entity"
)

const (
	// DefaultMaxDrafts caps how many drafts the store retains.
	DefaultMaxDrafts = 50

	// DefaultMaxAge is how long terminal drafts are kept before cleanup.
	DefaultMaxAge = 24 * time.Hour
)

// Service owns the canonical in-memory draft table plus the transient
// per-operator editing pointers. All mutations are serialized through a
// store-level mutex and re-persisted to the backup repository.
type Service struct {
	mu      sync.RWMutex
	drafts  map[string]*entity.Draft
	editing map[string]string // operator id -> draft id

	backup        dao.BackupRepository
	logger        *slog.Logger
	maxIterations int
	maxDrafts     int
	maxAge        time.Duration

	now func() time.Time
}

// Options configures the draft service. Zero values fall back to defaults.
type Options struct {
	MaxIterations int
	MaxDrafts     int
	MaxAge        time.Duration

	// Now overrides the time source. Used in tests.
	Now func() time.Time
}

// New creates a draft service backed by the given backup repository.
func New(backup dao.BackupRepository, logger *slog.Logger, opts Options) *Service {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = entity.DefaultMaxIterations
	}
	if opts.MaxDrafts <= 0 {
		opts.MaxDrafts = DefaultMaxDrafts
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		drafts:        make(map[string]*entity.Draft),
		editing:       make(map[string]string),
		backup:        backup,
		logger:        logger,
		maxIterations: opts.MaxIterations,
		maxDrafts:     opts.MaxDrafts,
		maxAge:        opts.MaxAge,
		now:           opts.Now,
	}
}

// CreateInput represents input for creating a draft
type CreateInput struct {
	Topic           string
	Text            string
	Author          string
	Channels        []string
	ImagePath       string
	CalendarEntryID string
}

// Create creates a new pending draft and returns it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Draft, error) {
	if in.Topic == "" {
		return nil, entity.ErrEmptyTopic
	}
	if in.Text == "" {
		return nil, entity.ErrEmptyText
	}

	channels := in.Channels
	if len(channels) == 0 {
		channels = []string{"linkedin"}
	}

	now := s.now()
	draft := &entity.Draft{
		ID:              uuid.New().String()[:8],
		Topic:           in.Topic,
		Text:            in.Text,
		Author:          in.Author,
		Channels:        channels,
		ImagePath:       in.ImagePath,
		Status:          entity.DraftStatusPending,
		Iteration:       1,
		MaxIterations:   s.maxIterations,
		CalendarEntryID: in.CalendarEntryID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	s.cleanupLocked(ctx)
	s.drafts[draft.ID] = draft
	out := draft.Clone()
	s.mu.Unlock()

	s.persist(ctx, out)
	s.logger.Info("draft created", "id", draft.ID, "topic", truncate(in.Topic, 40), "author", in.Author)
	return out, nil
}

// Get retrieves a draft by id. On a cache miss it attempts to reload
// the durable backup, so in-flight drafts survive a process restart.
func (s *Service) Get(ctx context.Context, id string) (*entity.Draft, error) {
	s.mu.RLock()
	d, ok := s.drafts[id]
	if ok {
		out := d.Clone()
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	restored, err := s.backup.Load(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load draft backup", "id", id, "error", err)
		return nil, entity.ErrDraftNotFound
	}
	if restored == nil {
		return nil, entity.ErrDraftNotFound
	}

	s.mu.Lock()
	s.drafts[id] = restored
	out := restored.Clone()
	s.mu.Unlock()
	return out, nil
}

// UpdateInput carries the partial fields Update may merge into a draft.
// Only the fields listed here are recognized; the draft id, status and
// iteration counters can never be overwritten through Update.
type UpdateInput struct {
	Topic           *string
	ImagePath       *string
	Channels        []string
	CalendarEntryID *string
}

// Update merges the given fields into the stored draft and re-persists
// the backup.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*entity.Draft, error) {
	return s.mutate(ctx, id, func(d *entity.Draft) error {
		if in.Topic != nil {
			d.Topic = *in.Topic
		}
		if in.ImagePath != nil {
			d.ImagePath = *in.ImagePath
		}
		if len(in.Channels) > 0 {
			d.Channels = append([]string(nil), in.Channels...)
		}
		if in.CalendarEntryID != nil {
			d.CalendarEntryID = *in.CalendarEntryID
		}
		return nil
	})
}

// ApplyEdit records an edit iteration: new text, incremented iteration,
// appended feedback entry. Refused once the iteration cap is reached —
// the caller must then force an approve/reject choice.
func (s *Service) ApplyEdit(ctx context.Context, id, text, feedback string) (*entity.Draft, error) {
	return s.mutate(ctx, id, func(d *entity.Draft) error {
		if d.Status != entity.DraftStatusPending {
			return entity.ErrDraftNotPending
		}
		if d.Iteration >= d.MaxIterations {
			return entity.ErrEditLimitReached
		}
		d.Text = text
		d.Iteration++
		d.Feedback = feedback
		if feedback != "" {
			d.FeedbackHistory = append(d.FeedbackHistory, feedback)
		}
		return nil
	})
}

// Approve transitions a pending draft to approved.
func (s *Service) Approve(ctx context.Context, id string) (*entity.Draft, error) {
	return s.mutate(ctx, id, func(d *entity.Draft) error {
		if d.Status != entity.DraftStatusPending {
			return entity.ErrDraftNotPending
		}
		d.Status = entity.DraftStatusApproved
		return nil
	})
}

// Reject transitions a pending draft to rejected with a reason.
func (s *Service) Reject(ctx context.Context, id, reason string) (*entity.Draft, error) {
	return s.mutate(ctx, id, func(d *entity.Draft) error {
		if d.Status != entity.DraftStatusPending {
			return entity.ErrDraftNotPending
		}
		d.Status = entity.DraftStatusRejected
		d.RejectReason = reason
		return nil
	})
}

// MarkPublished moves a draft to its published terminal status. Calling
// it on an already-published draft is a no-op; publish failures leave
// the draft approved and retryable, so this is only called after at
// least one channel delivery succeeded.
func (s *Service) MarkPublished(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(d *entity.Draft) error {
		if d.Status == entity.DraftStatusPublished {
			return nil
		}
		if d.Status == entity.DraftStatusRejected {
			return entity.ErrDraftTerminal
		}
		d.Status = entity.DraftStatusPublished
		return nil
	})
	return err
}

// SetEditing records that the operator's next free-text input is
// feedback for the given draft. Session state, not post state.
func (s *Service) SetEditing(operatorID, draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing[operatorID] = draftID
}

// GetEditing returns the draft the operator is currently editing, if any.
func (s *Service) GetEditing(operatorID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.editing[operatorID]
	return id, ok
}

// ClearEditing drops the operator's editing pointer.
func (s *Service) ClearEditing(operatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.editing, operatorID)
}

// ActiveCount returns the number of non-terminal drafts.
func (s *Service) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.drafts {
		if d.IsActive() {
			n++
		}
	}
	return n
}

// List returns all cached drafts, newest first.
func (s *Service) List() []entity.Draft {
	s.mu.RLock()
	out := make([]entity.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, *d.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// mutate applies fn to the canonical copy under the store lock, then
// re-persists the backup. Returns a clone of the updated draft.
func (s *Service) mutate(ctx context.Context, id string, fn func(*entity.Draft) error) (*entity.Draft, error) {
	s.mu.Lock()
	d, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()

		// Fall back to the backup before declaring the draft missing.
		restored, err := s.backup.Load(ctx, id)
		if err != nil || restored == nil {
			return nil, entity.ErrDraftNotFound
		}
		s.mu.Lock()
		if existing, raced := s.drafts[id]; raced {
			restored = existing
		} else {
			s.drafts[id] = restored
		}
		d = restored
	}

	if err := fn(d); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	d.UpdatedAt = s.now()
	out := d.Clone()
	s.mu.Unlock()

	s.persist(ctx, out)
	return out, nil
}

// persist writes the backup copy. Backup failures are logged but never
// fail the mutation: the canonical in-memory copy is already updated.
func (s *Service) persist(ctx context.Context, d *entity.Draft) {
	if err := s.backup.Save(ctx, d); err != nil {
		s.logger.Warn("failed to save draft backup", "id", d.ID, "error", err)
	}
}

// cleanupLocked removes old terminal drafts and evicts the oldest ones
// over the retention cap. Caller must hold the write lock.
func (s *Service) cleanupLocked(ctx context.Context) {
	now := s.now()
	var removed []string

	for id, d := range s.drafts {
		age := now.Sub(d.CreatedAt)
		switch {
		case d.IsTerminal() && age > s.maxAge:
			removed = append(removed, id)
		case age > 3*s.maxAge:
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.drafts, id)
	}

	if len(s.drafts) > s.maxDrafts {
		ids := make([]string, 0, len(s.drafts))
		for id := range s.drafts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return s.drafts[ids[i]].CreatedAt.Before(s.drafts[ids[j]].CreatedAt)
		})
		for _, id := range ids[:len(s.drafts)-s.maxDrafts] {
			delete(s.drafts, id)
			removed = append(removed, id)
		}
	}

	for _, id := range removed {
		if err := s.backup.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete draft backup", "id", id, "error", err)
		}
	}
	if len(removed) > 0 {
		s.logger.Info("cleaned up old drafts", "count", len(removed))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
