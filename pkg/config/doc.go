// Package config loads and validates Saturn's YAML configuration.
//
// Configuration covers the quota set, the operation cost table, decision
// storage, the ops HTTP server, and logging. Values are loaded from a YAML
// file, filled in with defaults, optionally overridden by SATURN_*
// environment variables, and validated before use.
//
// A Watcher can reload the file on change for long-running deployments.
package config
