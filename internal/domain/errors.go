package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("reward amount must be positive")
	ErrUnknownItem      = errors.New("unknown shop item")
	ErrNotEnoughStars   = errors.New("not enough stars")
	ErrAlreadyUnlocked  = errors.New("item already unlocked")
	ErrNotUnlocked      = errors.New("item is not unlocked")
	ErrNotEquippable    = errors.New("item cannot be equipped")
	ErrIncompleteSurvey = errors.New("survey has unanswered questions")
	ErrSessionClosed    = errors.New("session is closed")
)

// PersistenceError wraps a backend read or write failure. It is never fatal:
// the session keeps operating on in-memory state.
type PersistenceError struct {
	Op     string // "load" or "save"
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s progress for %s: %v", e.Op, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
