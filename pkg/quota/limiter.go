package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// NoTimeout makes Acquire wait indefinitely for tokens to become available.
const NoTimeout time.Duration = -1

// DefaultRetryInterval is how long Acquire sleeps between attempts while
// waiting for buckets to refill.
const DefaultRetryInterval = 100 * time.Millisecond

// MultiLimiter enforces several independent budgets at once.
//
// Every registered bucket must be able to afford a request before any bucket
// is charged: an operation admissible under the tightest budget but charged
// only there would corrupt the accounting of the looser budgets. Acquisition
// is therefore all-or-nothing across the full bucket set.
//
// The bucket set is fixed at construction. Buckets are locked in a fixed
// global order (quota names sorted lexicographically), so concurrent
// acquisitions cannot deadlock and a failed check never leaves a partial
// deduction behind.
//
// Acquisitions are not fair: under contention any waiting caller may succeed
// before an earlier-arrived one.
type MultiLimiter struct {
	names     []string // sorted; fixed lock order
	buckets   map[string]*TokenBucket
	intervals map[string]time.Duration

	retryInterval time.Duration
	logger        *slog.Logger
}

// NewMultiLimiter creates a limiter from a set of named quota configurations.
//
// Every quota must have a positive capacity and a positive interval; the
// refill rate is Tokens / Interval. All buckets start full.
//
// Example:
//
//	limiter, err := NewMultiLimiter(map[string]QuotaConfig{
//	    "per_second":      {Tokens: 10, Interval: time.Second},
//	    "per_100_seconds": {Tokens: 100, Interval: 100 * time.Second},
//	    "per_day":         {Tokens: 10000, Interval: 24 * time.Hour},
//	})
func NewMultiLimiter(quotas map[string]QuotaConfig) (*MultiLimiter, error) {
	if len(quotas) == 0 {
		return nil, fmt.Errorf("%w: at least one quota is required", ErrInvalidConfig)
	}

	l := &MultiLimiter{
		names:         make([]string, 0, len(quotas)),
		buckets:       make(map[string]*TokenBucket, len(quotas)),
		intervals:     make(map[string]time.Duration, len(quotas)),
		retryInterval: DefaultRetryInterval,
		logger:        slog.Default().With("component", "quota.limiter"),
	}

	for name, cfg := range quotas {
		if name == "" {
			return nil, fmt.Errorf("%w: quota name cannot be empty", ErrInvalidConfig)
		}
		if cfg.Tokens < 1 {
			return nil, fmt.Errorf("%w: quota %q has non-positive capacity %d",
				ErrInvalidConfig, name, cfg.Tokens)
		}
		if cfg.Interval <= 0 {
			return nil, fmt.Errorf("%w: quota %q has non-positive interval %s",
				ErrInvalidConfig, name, cfg.Interval)
		}

		rate := float64(cfg.Tokens) / cfg.Interval.Seconds()
		l.buckets[name] = NewTokenBucket(cfg.Tokens, rate)
		l.intervals[name] = cfg.Interval
		l.names = append(l.names, name)
	}

	// Lock order is by name so concurrent acquisitions cannot deadlock.
	sort.Strings(l.names)

	return l, nil
}

// SetRetryInterval overrides the sleep between acquisition attempts.
// Intended for tests; the default of 100ms suits production use.
func (l *MultiLimiter) SetRetryInterval(d time.Duration) {
	if d > 0 {
		l.retryInterval = d
	}
}

// TryAcquire makes a single attempt to consume n tokens from every bucket.
// It returns true only if all buckets could afford the request, in which
// case all were charged atomically. On false no balance has changed.
func (l *MultiLimiter) TryAcquire(n int64) bool {
	if n < 1 {
		l.logger.Error("rejected acquisition with non-positive token count", "tokens", n)
		return false
	}
	ok, _ := l.tryAcquireAll(n)
	return ok
}

// Acquire consumes n tokens from every bucket, waiting up to timeout for
// them to become available.
//
// A timeout of 0 makes exactly one attempt. NoTimeout (or any negative
// value) waits indefinitely. Acquire never blocks past the deadline by more
// than one retry interval and returns false without side effects when the
// deadline passes.
func (l *MultiLimiter) Acquire(n int64, timeout time.Duration) bool {
	if n < 1 {
		l.logger.Error("rejected acquisition with non-positive token count", "tokens", n)
		return false
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		ok, limiting := l.tryAcquireAll(n)
		if ok {
			return true
		}

		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				l.logger.Debug("acquisition timed out",
					"tokens", n,
					"limiting_quota", limiting,
				)
				return false
			}
			time.Sleep(min(l.retryInterval, remaining))
			continue
		}

		time.Sleep(l.retryInterval)
	}
}

// AcquireContext is Acquire with the deadline and cancellation taken from
// ctx. A context without a deadline waits indefinitely; cancellation aborts
// the wait and returns false.
func (l *MultiLimiter) AcquireContext(ctx context.Context, n int64) bool {
	if n < 1 {
		l.logger.Error("rejected acquisition with non-positive token count", "tokens", n)
		return false
	}

	for {
		ok, _ := l.tryAcquireAll(n)
		if ok {
			return true
		}

		wait := l.retryInterval
		if deadline, has := ctx.Deadline(); has {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false
			}
			wait = min(wait, remaining)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// Status reports a snapshot of every quota. Each bucket is refilled for
// elapsed time before being read, so the balances are current as of the
// call. Status never deducts tokens.
func (l *MultiLimiter) Status() map[string]QuotaStatus {
	status := make(map[string]QuotaStatus, len(l.names))

	for _, name := range l.names {
		b := l.buckets[name]
		b.lock()
		b.refillLocked(time.Now())
		status[name] = b.statusLocked(l.intervals[name])
		b.unlock()
	}

	return status
}

// TimeUntilAvailable estimates how long until n tokens will be available in
// every bucket at once, assuming no other consumption. It returns zero when
// the request could succeed immediately.
func (l *MultiLimiter) TimeUntilAvailable(n int64) time.Duration {
	var longest time.Duration
	for _, name := range l.names {
		if wait := l.buckets[name].TimeUntilAvailable(n); wait > longest {
			longest = wait
		}
	}
	return longest
}

// QuotaNames returns the registered quota names in lock order.
func (l *MultiLimiter) QuotaNames() []string {
	names := make([]string, len(l.names))
	copy(names, l.names)
	return names
}

// tryAcquireAll locks every bucket in the fixed order, refills them, and
// charges all of them only if all can afford n tokens. On failure it
// returns the name of the first bucket that could not afford the request
// and leaves every balance untouched.
func (l *MultiLimiter) tryAcquireAll(n int64) (bool, string) {
	now := time.Now()

	for _, name := range l.names {
		l.buckets[name].lock()
	}
	defer func() {
		// Release in reverse acquisition order.
		for i := len(l.names) - 1; i >= 0; i-- {
			l.buckets[l.names[i]].unlock()
		}
	}()

	limiting := ""
	for _, name := range l.names {
		b := l.buckets[name]
		b.refillLocked(now)
		if limiting == "" && !b.hasLocked(n) {
			limiting = name
		}
	}

	if limiting != "" {
		return false, limiting
	}

	for _, name := range l.names {
		l.buckets[name].deductLocked(n)
	}
	return true, ""
}
