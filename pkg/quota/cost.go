package quota

import (
	"fmt"
	"sort"
)

// DefaultCost is charged for operation kinds with no explicit cost entry.
const DefaultCost int64 = 1

// CostModel maps logical operation kinds to their quota cost in tokens.
//
// Remote APIs rarely price all calls equally: a plain list call may cost one
// quota unit while a search costs a hundred. The cost model translates
// "perform operation X" into "acquire cost(X) tokens" so the limiter never
// needs to know which remote operations exist.
//
// The table is immutable after construction. Unknown operation kinds cost
// DefaultCost.
type CostModel struct {
	costs map[string]int64
}

// NewCostModel creates a cost model from a table of operation costs.
// Every cost must be positive.
func NewCostModel(costs map[string]int64) (*CostModel, error) {
	table := make(map[string]int64, len(costs))
	for op, cost := range costs {
		if op == "" {
			return nil, fmt.Errorf("%w: operation kind cannot be empty", ErrInvalidConfig)
		}
		if cost < 1 {
			return nil, fmt.Errorf("%w: operation %q has non-positive cost %d",
				ErrInvalidConfig, op, cost)
		}
		table[op] = cost
	}
	return &CostModel{costs: table}, nil
}

// Cost returns the token cost of an operation kind.
// Unknown kinds cost DefaultCost.
func (c *CostModel) Cost(operation string) int64 {
	if cost, ok := c.costs[operation]; ok {
		return cost
	}
	return DefaultCost
}

// Operations returns the known operation kinds in sorted order.
func (c *CostModel) Operations() []string {
	ops := make([]string, 0, len(c.costs))
	for op := range c.costs {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
