package storage

import (
	"context"
	"errors"
	"time"
)

// Decision is one recorded admission decision.
type Decision struct {
	// ID uniquely identifies the decision (UUID).
	ID string

	// Timestamp is when the decision was taken.
	Timestamp time.Time

	// Operation is the logical operation kind that was requested.
	Operation string

	// Cost is the token cost charged (or that would have been charged).
	Cost int64

	// Allowed indicates whether the operation was admitted.
	Allowed bool

	// WaitDuration is how long the caller waited for tokens.
	WaitDuration time.Duration
}

// Backend is the interface for decision persistence.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Record persists one decision. Returns an error on failure.
	Record(ctx context.Context, d *Decision) error

	// List returns decisions taken at or after since, newest first.
	List(ctx context.Context, since time.Time) ([]*Decision, error)

	// Cleanup removes decisions older than the given time.
	// Returns the number of records deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases resources held by the backend.
	// The backend must not be used after Close.
	Close() error
}

// Validation errors shared by backends.
var (
	ErrNilDecision = errors.New("decision cannot be nil")
	ErrEmptyID     = errors.New("decision id cannot be empty")
	ErrClosed      = errors.New("storage backend is closed")
)
