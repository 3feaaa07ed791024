package dao

import (
	"context"

	"github.com/vadim/postline/internal/domain/draft/entity"
)

// BackupRepository is the durable copy behind the in-memory draft table.
// A draft is re-persisted on every mutation and reloaded on a cache
// miss, so in-flight drafts survive a process restart.
type BackupRepository interface {
	// Save writes or replaces the backup record for a draft.
	Save(ctx context.Context, draft *entity.Draft) error

	// Load retrieves the backup for a draft id. Returns (nil, nil)
	// when no backup exists.
	Load(ctx context.Context, id string) (*entity.Draft, error)

	// Delete removes the backup record. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, id string) error
}
