package entity

import "errors"

// Domain errors for drafts
var (
	ErrDraftNotFound    = errors.New("draft not found")
	ErrDraftNotPending  = errors.New("draft is not pending approval")
	ErrDraftTerminal    = errors.New("draft is in a terminal status")
	ErrEditLimitReached = errors.New("edit limit reached, draft must be approved or rejected")
	ErrEmptyTopic       = errors.New("topic is required")
	ErrEmptyText        = errors.New("text is required")
)
