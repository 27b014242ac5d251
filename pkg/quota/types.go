package quota

import (
	"errors"
	"fmt"
	"time"
)

// QuotaConfig describes one budget dimension: a capacity of tokens that
// replenishes fully over the given interval.
//
// The refill rate is Tokens / Interval. A config of {Tokens: 100,
// Interval: 100s} therefore refills at 1 token per second up to a
// maximum balance of 100.
type QuotaConfig struct {
	// Tokens is the bucket capacity (maximum balance).
	Tokens int64 `yaml:"tokens"`

	// Interval is the time it takes an empty bucket to refill completely.
	Interval time.Duration `yaml:"interval"`
}

// QuotaStatus is a point-in-time snapshot of one budget dimension.
type QuotaStatus struct {
	// AvailableTokens is the current balance, including fractional
	// accrual from lazy refill.
	AvailableTokens float64 `json:"available_tokens"`

	// MaxTokens is the bucket capacity.
	MaxTokens int64 `json:"max_tokens"`

	// RefillInterval is the time a full refill takes.
	RefillInterval time.Duration `json:"refill_interval"`
}

// Acquirer is the capability required to admit a costed operation.
// MultiLimiter implements it directly; KeyedLimiter exposes per-key
// views via ForKey. Guard builds the error-returning access mode on top.
type Acquirer interface {
	// TryAcquire makes a single attempt to consume n tokens.
	// It returns true if the tokens were deducted.
	TryAcquire(n int64) bool
}

// Sentinel errors for limit violations and misuse.
var (
	// ErrRateLimitExceeded is returned when an operation is denied
	// because one or more budgets are exhausted.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidTokens is returned when a caller requests a
	// non-positive number of tokens.
	ErrInvalidTokens = errors.New("requested tokens must be positive")

	// ErrInvalidConfig is returned when a quota configuration is invalid.
	ErrInvalidConfig = errors.New("invalid quota configuration")
)

// RateLimitError carries the operation and cost that were denied.
// It wraps ErrRateLimitExceeded so callers can match with errors.Is.
type RateLimitError struct {
	// Operation is the logical operation kind that was denied.
	Operation string

	// Cost is the token cost that could not be satisfied.
	Cost int64
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q (cost %d)", e.Operation, e.Cost)
}

// Unwrap returns ErrRateLimitExceeded for errors.Is matching.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}
