package config

import (
	"time"

	"calibra-hq/saturn/pkg/quota"
)

// Config is the root configuration for Saturn.
type Config struct {
	// Quotas maps quota names to their budget configuration.
	Quotas map[string]quota.QuotaConfig `yaml:"quotas"`

	// Costs maps operation kinds to their token cost.
	// Unknown kinds cost 1.
	Costs map[string]int64 `yaml:"costs"`

	// Storage configures the decision audit trail.
	Storage StorageConfig `yaml:"storage"`

	// Server configures the ops HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures decision persistence.
type StorageConfig struct {
	// Backend selects the storage implementation: "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path (sqlite backend only).
	Path string `yaml:"path"`

	// MaxEntries bounds the memory backend.
	MaxEntries int `yaml:"max_entries"`

	// Retention is how long decisions are kept.
	Retention time.Duration `yaml:"retention"`

	// CleanupSchedule is a cron expression for scheduled pruning.
	// Empty disables scheduled cleanup.
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	// Enabled controls whether the server is started at all.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	Format string `yaml:"format"`
}
