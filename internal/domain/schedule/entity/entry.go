package entity

import (
	"slices"
	"time"
)

// EntryStatus represents the current status of a schedule entry
type EntryStatus string

const (
	EntryStatusScheduled EntryStatus = "scheduled"
	EntryStatusPublished EntryStatus = "published"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// Entry is an instruction to publish a specific draft to specific
// channels at or after a specific time. It transitions out of
// scheduled exactly once; terminal statuses are final.
type Entry struct {
	ID        string      `json:"id"`
	DraftID   string      `json:"post_id"`
	Channels  []string    `json:"channels"`
	PublishAt time.Time   `json:"publish_at"` // always UTC
	Status    EntryStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsTerminal returns true once the entry can no longer change status.
func (e *Entry) IsTerminal() bool {
	return e.Status != EntryStatusScheduled
}

// IsDue returns true when the entry should be picked up by the
// background loop.
func (e *Entry) IsDue(now time.Time) bool {
	return e.Status == EntryStatusScheduled && !e.PublishAt.After(now)
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Channels = slices.Clone(e.Channels)
	return &c
}
