package dao

import (
	"context"
	"sync"

	"github.com/vadim/postline/internal/domain/draft/entity"
)

// BackupMemory implements BackupRepository in memory. Used in tests and
// as a stand-in when no durable path is configured.
type BackupMemory struct {
	mu     sync.RWMutex
	drafts map[string]*entity.Draft
}

var _ BackupRepository = (*BackupMemory)(nil)

// NewBackupMemory creates an empty in-memory backup repository.
func NewBackupMemory() *BackupMemory {
	return &BackupMemory{drafts: make(map[string]*entity.Draft)}
}

func (r *BackupMemory) Save(_ context.Context, draft *entity.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[draft.ID] = draft.Clone()
	return nil
}

func (r *BackupMemory) Load(_ context.Context, id string) (*entity.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[id]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (r *BackupMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
	return nil
}
