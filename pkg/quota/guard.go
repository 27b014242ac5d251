package quota

import "fmt"

// Default bucket parameters for guards constructed without an explicit
// limit, matching a conservative 10 ops/sec with burst headroom.
const (
	defaultGuardCapacity   int64   = 100
	defaultGuardRefillRate float64 = 10
)

// Guard is the error-returning access mode over an Acquirer.
//
// MultiLimiter and KeyedLimiter report denial as a boolean; some call sites
// want denial to propagate as an error instead. Guard layers that on top of
// the same token bucket math rather than duplicating it: a denied check
// returns a *RateLimitError wrapping ErrRateLimitExceeded.
//
// Guards are constructed and injected explicitly by the owning component.
type Guard struct {
	limiter Acquirer
	costs   *CostModel
}

// NewGuard creates a guard over an existing limiter and cost model.
// A nil costs model charges DefaultCost for every operation.
func NewGuard(limiter Acquirer, costs *CostModel) *Guard {
	if costs == nil {
		costs, _ = NewCostModel(nil)
	}
	return &Guard{limiter: limiter, costs: costs}
}

// NewDefaultGuard creates a guard with its own single-key limiter using
// the default capacity and refill rate. The key doubles as the operation
// name reported on denial.
func NewDefaultGuard(key string) *Guard {
	limiter := NewKeyedLimiter()
	limiter.CreateLimit(key, defaultGuardCapacity, defaultGuardRefillRate)
	return NewGuard(limiter.ForKey(key), nil)
}

// Check admits one instance of the given operation, charging its cost from
// the cost model. It returns nil on success and a *RateLimitError on denial.
func (g *Guard) Check(operation string) error {
	return g.CheckN(operation, g.costs.Cost(operation))
}

// CheckN admits an operation at an explicit token cost, bypassing the cost
// model. A non-positive n is a programming error and is rejected before
// the limiter is consulted.
func (g *Guard) CheckN(operation string, n int64) error {
	if n < 1 {
		return fmt.Errorf("%w: got %d for %q", ErrInvalidTokens, n, operation)
	}

	if !g.limiter.TryAcquire(n) {
		return &RateLimitError{Operation: operation, Cost: n}
	}
	return nil
}

// Do runs fn only if the operation is admitted, returning the denial error
// otherwise. Errors from fn are returned as-is.
func (g *Guard) Do(operation string, fn func() error) error {
	if err := g.Check(operation); err != nil {
		return err
	}
	return fn()
}
