// Saturn is a quota-aware admission controller for rate-limited APIs.
//
// It meters outbound calls against multiple concurrent token budgets
// (per-second, per-100-seconds, per-day, or any custom set), providing:
//   - Atomic all-or-nothing admission across every budget
//   - Blocking acquisition with a configurable timeout
//   - Per-operation token costs (a search may cost 100x a list)
//   - Live quota status, Prometheus metrics, and a decision audit log
//
// Usage:
//
//	# Start the ops server with default configuration
//	saturn run
//
//	# Start with a custom configuration file
//	saturn run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	saturn validate --config config.yaml
//
//	# Query quota status from a running instance
//	saturn status --address 127.0.0.1:8080
//
//	# Load-test the local gate
//	saturn bench --rate 50 --duration 10s
package main

func main() {
	Execute()
}
