package dao

import (
	"context"
	"time"

	"github.com/vadim/postline/internal/domain/schedule/entity"
)

// EntryRepository defines data access for the schedule queue.
type EntryRepository interface {
	// Create inserts a new schedule entry.
	Create(ctx context.Context, e *entity.Entry) error

	// GetByID retrieves an entry by id. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*entity.Entry, error)

	// GetDue returns all scheduled entries with publish_at <= now.
	GetDue(ctx context.Context, now time.Time) ([]entity.Entry, error)

	// ListPending returns all entries still in the scheduled status.
	ListPending(ctx context.Context) ([]entity.Entry, error)

	// Transition moves an entry from scheduled to the given terminal
	// status. Returns false when the entry was already resolved, which
	// makes MarkPublished/MarkFailed idempotent without a read-modify-
	// write race.
	Transition(ctx context.Context, id string, to entity.EntryStatus, errMsg string) (bool, error)

	// DeleteResolvedBefore removes terminal entries whose publish time
	// is older than the cutoff. Scheduled entries are never removed.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
