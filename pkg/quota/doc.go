// Package quota provides multi-budget token bucket admission control for
// rate-limited remote APIs.
//
// # Overview
//
// Remote APIs commonly impose several independent usage budgets at once, for
// example 10 queries per second, 100 queries per 100 seconds, and 10,000
// quota units per day. The quota package models each budget as a token bucket
// and admits an operation only when every bucket can afford it:
//
//   - TokenBucket: a single capped, time-replenished token balance
//   - MultiLimiter: atomic all-or-nothing acquisition across every bucket
//   - KeyedLimiter: independent per-key buckets for single-dimension call sites
//   - CostModel: maps operation kinds to their quota cost in tokens
//   - Guard: error-returning wrapper over any Acquirer
//
// # Multi-Budget Acquisition
//
// MultiLimiter deducts tokens from all buckets or none. An operation that is
// affordable under the tightest budget but charged only there would corrupt
// the accounting of the looser budgets:
//
//	limiter, err := quota.NewMultiLimiter(map[string]quota.QuotaConfig{
//	    "per_second": {Tokens: 10, Interval: time.Second},
//	    "per_day":    {Tokens: 10000, Interval: 24 * time.Hour},
//	})
//	if limiter.Acquire(1, 5*time.Second) {
//	    // Proceed with the remote call
//	}
//
// # Refill Model
//
// Buckets refill lazily: on every observation the elapsed wall-clock time is
// converted to tokens and credited, clamped to capacity. No background ticker
// is required and balances are always correct at the instant they are read.
//
// # Thread Safety
//
// All limiters are safe for concurrent use. MultiLimiter locks its buckets in
// a fixed global order, so a failed acquisition never leaves a partially
// deducted state and concurrent callers cannot deadlock.
package quota
