package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"calibra-hq/saturn/pkg/quota"
	"calibra-hq/saturn/pkg/storage"
)

// DefaultQuotas returns the stock budget set for a metered remote API:
// 10 calls per second, 100 per 100 seconds, and 10,000 units per day.
func DefaultQuotas() map[string]quota.QuotaConfig {
	return map[string]quota.QuotaConfig{
		"per_second":      {Tokens: 10, Interval: time.Second},
		"per_100_seconds": {Tokens: 100, Interval: 100 * time.Second},
		"per_day":         {Tokens: 10000, Interval: 24 * time.Hour},
	}
}

// Config configures a Gate.
type Config struct {
	// Quotas is the budget set to enforce. Required.
	Quotas map[string]quota.QuotaConfig

	// Costs maps operation kinds to token costs. Unknown kinds cost 1.
	Costs map[string]int64

	// Store receives an audit record of every decision. Optional.
	Store storage.Backend

	// Metrics receives admission and quota metrics. Optional.
	Metrics *Metrics

	// Logger for decision logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Gate admits costed operations against a multi-budget limiter.
//
// The gate is constructed and owned explicitly by the API client that needs
// it; there is no process-wide singleton. All methods are safe for
// concurrent use.
type Gate struct {
	limiter *quota.MultiLimiter
	costs   *quota.CostModel
	store   storage.Backend
	metrics *Metrics
	logger  *slog.Logger
}

// New creates a gate from the given configuration.
func New(cfg Config) (*Gate, error) {
	limiter, err := quota.NewMultiLimiter(cfg.Quotas)
	if err != nil {
		return nil, fmt.Errorf("failed to build limiter: %w", err)
	}

	costs, err := quota.NewCostModel(cfg.Costs)
	if err != nil {
		return nil, fmt.Errorf("failed to build cost model: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		limiter: limiter,
		costs:   costs,
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  logger.With("component", "gate"),
	}, nil
}

// Admit decides whether one instance of the given operation may proceed,
// waiting for tokens until ctx is cancelled or its deadline passes. The
// operation's cost comes from the cost model.
func (g *Gate) Admit(ctx context.Context, operation string) bool {
	cost := g.costs.Cost(operation)

	start := time.Now()
	allowed := g.limiter.AcquireContext(ctx, cost)
	g.finish(operation, cost, allowed, time.Since(start))

	return allowed
}

// AdmitWait is Admit with an explicit timeout instead of a context.
// A timeout of 0 makes a single attempt; quota.NoTimeout waits forever.
func (g *Gate) AdmitWait(operation string, timeout time.Duration) bool {
	cost := g.costs.Cost(operation)

	start := time.Now()
	allowed := g.limiter.Acquire(cost, timeout)
	g.finish(operation, cost, allowed, time.Since(start))

	return allowed
}

// Status reports the current balance of every quota. Monitoring reads this
// independently of admission; it never consumes tokens.
func (g *Gate) Status() map[string]quota.QuotaStatus {
	status := g.limiter.Status()

	if g.metrics != nil {
		for name, s := range status {
			g.metrics.UpdateQuota(name, s.AvailableTokens, s.MaxTokens)
		}
	}

	return status
}

// TimeUntilAvailable estimates how long until n tokens will be available in
// every quota at once, assuming no other consumption.
func (g *Gate) TimeUntilAvailable(n int64) time.Duration {
	return g.limiter.TimeUntilAvailable(n)
}

// Cost exposes the gate's cost model lookup.
func (g *Gate) Cost(operation string) int64 {
	return g.costs.Cost(operation)
}

// Close releases the storage backend, if any.
func (g *Gate) Close() error {
	if g.store != nil {
		return g.store.Close()
	}
	return nil
}

// finish logs, measures, and records one decision.
func (g *Gate) finish(operation string, cost int64, allowed bool, wait time.Duration) {
	if allowed {
		g.logger.Debug("operation admitted",
			"operation", operation,
			"cost", cost,
			"wait", wait.String(),
		)
	} else {
		g.logger.Warn("operation denied",
			"operation", operation,
			"cost", cost,
			"wait", wait.String(),
		)
	}

	if g.metrics != nil {
		g.metrics.RecordAdmission(operation, allowed, wait)
	}

	if g.store != nil {
		decision := &storage.Decision{
			ID:           uuid.NewString(),
			Timestamp:    time.Now(),
			Operation:    operation,
			Cost:         cost,
			Allowed:      allowed,
			WaitDuration: wait,
		}

		// Persist off the hot path; a full audit trail is best-effort.
		go func() {
			if err := g.store.Record(context.Background(), decision); err != nil {
				g.logger.Error("failed to record decision", "error", err)
			}
		}()
	}
}
