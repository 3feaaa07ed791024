package dao

import (
	"context"
	"sync"
	"time"

	"github.com/vadim/postline/internal/domain/schedule/entity"
)

// EntryMemory implements EntryRepository in memory. Used in tests and
// when no database DSN is configured.
type EntryMemory struct {
	mu      sync.RWMutex
	entries map[string]*entity.Entry
}

var _ EntryRepository = (*EntryMemory)(nil)

// NewEntryMemory creates an empty in-memory entry repository.
func NewEntryMemory() *EntryMemory {
	return &EntryMemory{entries: make(map[string]*entity.Entry)}
}

func (r *EntryMemory) Create(_ context.Context, e *entity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e.Clone()
	return nil
}

func (r *EntryMemory) GetByID(_ context.Context, id string) (*entity.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (r *EntryMemory) GetDue(_ context.Context, now time.Time) ([]entity.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []entity.Entry
	for _, e := range r.entries {
		if e.IsDue(now) {
			due = append(due, *e.Clone())
		}
	}
	return due, nil
}

func (r *EntryMemory) ListPending(_ context.Context) ([]entity.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var pending []entity.Entry
	for _, e := range r.entries {
		if e.Status == entity.EntryStatusScheduled {
			pending = append(pending, *e.Clone())
		}
	}
	return pending, nil
}

func (r *EntryMemory) Transition(_ context.Context, id string, to entity.EntryStatus, errMsg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false, entity.ErrEntryNotFound
	}
	if e.IsTerminal() {
		return false, nil
	}
	e.Status = to
	e.Error = errMsg
	e.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *EntryMemory) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, e := range r.entries {
		if e.IsTerminal() && e.PublishAt.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed, nil
}
