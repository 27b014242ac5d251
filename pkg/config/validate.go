package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
// It is called after defaults are applied, so every field is populated.
func Validate(cfg *Config) error {
	if len(cfg.Quotas) == 0 {
		return fmt.Errorf("at least one quota must be configured")
	}
	for name, q := range cfg.Quotas {
		if name == "" {
			return fmt.Errorf("quota name cannot be empty")
		}
		if q.Tokens < 1 {
			return fmt.Errorf("quota %q: tokens must be positive, got %d", name, q.Tokens)
		}
		if q.Interval <= 0 {
			return fmt.Errorf("quota %q: interval must be positive, got %s", name, q.Interval)
		}
	}

	for op, cost := range cfg.Costs {
		if op == "" {
			return fmt.Errorf("cost table: operation kind cannot be empty")
		}
		if cost < 1 {
			return fmt.Errorf("cost table: operation %q must have positive cost, got %d", op, cost)
		}
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage: sqlite backend requires a path")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q (want memory or sqlite)", cfg.Storage.Backend)
	}

	if cfg.Storage.MaxEntries < 1 {
		return fmt.Errorf("storage: max_entries must be positive, got %d", cfg.Storage.MaxEntries)
	}
	if cfg.Storage.Retention <= 0 {
		return fmt.Errorf("storage: retention must be positive, got %s", cfg.Storage.Retention)
	}
	if cfg.Storage.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Storage.CleanupSchedule); err != nil {
			return fmt.Errorf("storage: invalid cleanup schedule %q: %w", cfg.Storage.CleanupSchedule, err)
		}
	}

	if cfg.Server.Enabled && cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server: listen_address is required when the server is enabled")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging: unknown format %q", cfg.Logging.Format)
	}

	return nil
}
