package quota

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The bucket holds a capped balance of tokens that replenishes at a constant
// rate. Each admitted operation consumes one or more tokens; when the balance
// is insufficient the operation is rejected. Bursts up to the capacity are
// allowed while the average rate is bounded by the refill rate.
//
// The balance is a float64 so that fractional accrual between observations is
// never lost: at 1 token per 100 seconds, two reads 50 seconds apart must
// each see half a token of progress.
//
// Refill is lazy. There is no background ticker; elapsed time is converted to
// tokens whenever the bucket is inspected, so the balance is always correct
// at the instant it is read.
//
// # Thread Safety
//
// TokenBucket is thread-safe using sync.Mutex for all operations. MultiLimiter
// additionally drives several buckets under their own mutexes via the
// *Locked methods to make cross-bucket deduction atomic.
type TokenBucket struct {
	capacity   int64     // Maximum tokens in bucket
	refillRate float64   // Tokens added per second
	tokens     float64   // Current available tokens
	lastRefill time.Time // Last time tokens were refilled
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket with the given capacity and
// refill rate in tokens per second. The bucket starts full.
//
// Example:
//
//	// 10 requests/sec average, burst up to 10
//	bucket := NewTokenBucket(10, 10)
//
//	// 10,000 units/day
//	bucket := NewTokenBucket(10000, 10000.0/86400.0)
func NewTokenBucket(capacity int64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity), // Start with full bucket
		lastRefill: time.Now(),
	}
}

// Take attempts to consume n tokens from the bucket.
// Returns true if tokens were available and consumed, false otherwise.
// A non-positive n is rejected without touching the balance.
func (tb *TokenBucket) Take(n int64) bool {
	if n < 1 {
		return false
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	return tb.takeLocked(n)
}

// Remaining returns the current balance after refilling for elapsed time.
func (tb *TokenBucket) Remaining() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	return tb.tokens
}

// Capacity returns the maximum bucket capacity.
func (tb *TokenBucket) Capacity() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.capacity
}

// Reset restores the bucket to full capacity.
// This is useful for testing or manual limit resets.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = float64(tb.capacity)
	tb.lastRefill = time.Now()
}

// TimeUntilAvailable returns how long until n tokens will be available.
// Returns 0 if the tokens are available now.
func (tb *TokenBucket) TimeUntilAvailable(n int64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())

	needed := float64(n) - tb.tokens
	if needed <= 0 {
		return 0
	}

	seconds := needed / tb.refillRate
	return time.Duration(seconds * float64(time.Second))
}

// lock acquires the bucket's mutex directly. Used by MultiLimiter to hold
// several buckets at once for all-or-nothing deduction.
func (tb *TokenBucket) lock() { tb.mu.Lock() }

// unlock releases the bucket's mutex.
func (tb *TokenBucket) unlock() { tb.mu.Unlock() }

// refillLocked credits tokens for the time elapsed since the last refill,
// clamped to capacity. Caller must hold the mutex.
func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	tb.lastRefill = now
}

// hasLocked reports whether n tokens are available. Caller must hold the
// mutex and have refilled first.
func (tb *TokenBucket) hasLocked(n int64) bool {
	return tb.tokens >= float64(n)
}

// takeLocked deducts n tokens if available. Caller must hold the mutex and
// have refilled first.
func (tb *TokenBucket) takeLocked(n int64) bool {
	if !tb.hasLocked(n) {
		return false
	}
	tb.tokens -= float64(n)
	return true
}

// deductLocked unconditionally removes n tokens. Used by MultiLimiter once
// every bucket has been verified to afford the request. Caller must hold
// the mutex.
func (tb *TokenBucket) deductLocked(n int64) {
	tb.tokens -= float64(n)
	if tb.tokens < 0 {
		tb.tokens = 0
	}
}

// statusLocked reports the bucket state. Caller must hold the mutex and
// have refilled first.
func (tb *TokenBucket) statusLocked(interval time.Duration) QuotaStatus {
	return QuotaStatus{
		AvailableTokens: tb.tokens,
		MaxTokens:       tb.capacity,
		RefillInterval:  interval,
	}
}
