// Package storage persists admission decisions for auditing and reporting.
//
// # Overview
//
// Every admission decision the gate takes (operation, token cost, outcome,
// wait time) can be recorded to a storage backend. The record is an audit
// trail only: bucket balances are never persisted and every process start
// begins with full buckets.
//
// Two backends are provided:
//
//   - MemoryBackend: fast, bounded, no persistence (default)
//   - SQLiteBackend: durable single-file storage using WAL
//
// A cron-driven Scheduler prunes records past the retention period.
//
// # Thread Safety
//
// All backends are safe for concurrent use.
package storage
