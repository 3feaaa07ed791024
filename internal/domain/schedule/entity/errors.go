package entity

import "errors"

// Domain errors for schedule entries
var (
	ErrEntryNotFound        = errors.New("schedule entry not found")
	ErrEntryAlreadyResolved = errors.New("schedule entry is already resolved")
	ErrEmptyDraftID         = errors.New("draft id is required")
	ErrNoChannels           = errors.New("at least one channel is required")
)
