// Package gate is the admission facade that API clients call before each
// costed remote operation.
//
// # Overview
//
// A Gate owns a multi-budget limiter and a cost model. Callers ask it to
// admit a logical operation; the gate translates the operation kind into a
// token cost, attempts an atomic acquisition across every budget, and
// reports the outcome:
//
//	gate, err := gate.New(gate.Config{
//	    Quotas: quota.DefaultQuotas(),
//	    Costs:  map[string]int64{"list": 1, "search": 100},
//	})
//
//	if gate.Admit(ctx, "search") {
//	    // Perform the remote search
//	}
//
// Every decision can be recorded to a storage backend for auditing and is
// reflected in Prometheus metrics when configured. Quota status is exposed
// for monitoring independently of admission.
package gate
