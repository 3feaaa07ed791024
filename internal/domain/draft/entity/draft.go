package entity

import (
	"slices"
	"time"
)

// DraftStatus represents the current status of a draft
type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusApproved  DraftStatus = "approved"
	DraftStatusRejected  DraftStatus = "rejected"
	DraftStatusPublished DraftStatus = "published"
)

// DefaultMaxIterations caps the edit/regenerate loop per draft.
const DefaultMaxIterations = 3

// Draft represents a post under construction, tracked through the
// edit/approval state machine. The service owns the canonical in-memory
// copy; a durable backup is written on every mutation.
type Draft struct {
	ID              string      `json:"id"`
	Topic           string      `json:"topic"`
	Text            string      `json:"text"`
	Author          string      `json:"author"`
	Channels        []string    `json:"channels"`
	ImagePath       string      `json:"image_path,omitempty"`
	Status          DraftStatus `json:"status"`
	RejectReason    string      `json:"reject_reason,omitempty"`
	Feedback        string      `json:"feedback,omitempty"`
	Iteration       int         `json:"iteration"`
	MaxIterations   int         `json:"max_iterations"`
	FeedbackHistory []string    `json:"feedback_history,omitempty"`
	CalendarEntryID string      `json:"calendar_entry_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// IsTerminal returns true once the draft can no longer change status.
func (d *Draft) IsTerminal() bool {
	return d.Status == DraftStatusRejected || d.Status == DraftStatusPublished
}

// IsActive returns true for drafts still in the approval pipeline.
func (d *Draft) IsActive() bool {
	return d.Status == DraftStatusPending || d.Status == DraftStatusApproved
}

// CanEdit returns true if another edit iteration is allowed. Once the
// iteration cap is reached the only legal transitions are approve and
// reject.
func (d *Draft) CanEdit() bool {
	return d.Status == DraftStatusPending && d.Iteration < d.MaxIterations
}

// Clone returns a deep copy. The store hands out clones so that callers
// can never mutate the canonical copy without going through the store.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Channels = slices.Clone(d.Channels)
	c.FeedbackHistory = slices.Clone(d.FeedbackHistory)
	return &c
}
