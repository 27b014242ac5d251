package quota

import (
	"log/slog"
	"sync"
)

// KeyedLimiter maintains independent token buckets keyed by name.
//
// Unlike MultiLimiter, each key is a standalone budget: checking one key
// never touches another. This suits call sites where only one budget
// dimension applies, such as throttling writes to a single downstream
// resource.
//
// Unknown keys are fail-open: a check against a key with no registered
// limit logs a warning and succeeds, so a missing registration never
// blocks legitimate traffic outright.
type KeyedLimiter struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewKeyedLimiter creates an empty keyed limiter. Limits are registered
// with CreateLimit before use.
func NewKeyedLimiter() *KeyedLimiter {
	return &KeyedLimiter{
		buckets: make(map[string]*TokenBucket),
		logger:  slog.Default().With("component", "quota.keyed"),
	}
}

// CreateLimit registers a bucket under key with the given capacity and
// refill rate in tokens per second. Re-registering a key replaces its
// bucket with a fresh, full one.
func (k *KeyedLimiter) CreateLimit(key string, capacity int64, refillRate float64) {
	k.mu.Lock()
	k.buckets[key] = NewTokenBucket(capacity, refillRate)
	k.mu.Unlock()

	k.logger.Info("registered rate limit",
		"key", key,
		"capacity", capacity,
		"refill_rate", refillRate,
	)
}

// Allow makes a single attempt to consume n tokens from the bucket under
// key. There is no retry: the tokens are either available now or the call
// fails. Unknown keys succeed with a warning (fail-open).
func (k *KeyedLimiter) Allow(key string, n int64) bool {
	if n < 1 {
		k.logger.Error("rejected check with non-positive token count",
			"key", key,
			"tokens", n,
		)
		return false
	}

	k.mu.RLock()
	bucket, ok := k.buckets[key]
	k.mu.RUnlock()

	if !ok {
		k.logger.Warn("no rate limit defined, allowing", "key", key)
		return true
	}

	if !bucket.Take(n) {
		k.logger.Warn("rate limit exceeded", "key", key, "tokens", n)
		return false
	}
	return true
}

// Remaining reports the current balance for key after refilling for
// elapsed time. ok is false when no limit is registered under key.
func (k *KeyedLimiter) Remaining(key string) (remaining float64, ok bool) {
	k.mu.RLock()
	bucket, ok := k.buckets[key]
	k.mu.RUnlock()

	if !ok {
		return 0, false
	}
	return bucket.Remaining(), true
}

// ForKey returns an Acquirer view bound to key, suitable for composing
// with Guard. The view shares the fail-open behavior of Allow.
func (k *KeyedLimiter) ForKey(key string) Acquirer {
	return keyedView{limiter: k, key: key}
}

// keyedView adapts one key of a KeyedLimiter to the Acquirer interface.
type keyedView struct {
	limiter *KeyedLimiter
	key     string
}

func (v keyedView) TryAcquire(n int64) bool {
	return v.limiter.Allow(v.key, n)
}
