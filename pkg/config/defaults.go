package config

import (
	"time"

	"calibra-hq/saturn/pkg/quota"
)

// Default values applied to unset configuration fields.
const (
	DefaultStorageBackend  = "memory"
	DefaultStoragePath     = "saturn.db"
	DefaultMaxEntries      = 10000
	DefaultRetention       = 7 * 24 * time.Hour
	DefaultCleanupSchedule = "0 3 * * *"
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// ApplyDefaults fills unset fields with production defaults.
//
// The default quota set mirrors a typical metered API: 10 calls/second,
// 100 calls/100 seconds, and 10,000 units/day. The default cost table
// charges 1 unit for list-style calls and 100 for searches.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Quotas) == 0 {
		cfg.Quotas = map[string]quota.QuotaConfig{
			"per_second":      {Tokens: 10, Interval: time.Second},
			"per_100_seconds": {Tokens: 100, Interval: 100 * time.Second},
			"per_day":         {Tokens: 10000, Interval: 24 * time.Hour},
		}
	}

	if len(cfg.Costs) == 0 {
		cfg.Costs = map[string]int64{
			"list":   1,
			"search": 100,
		}
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.MaxEntries == 0 {
		cfg.Storage.MaxEntries = DefaultMaxEntries
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = DefaultRetention
	}
	if cfg.Storage.CleanupSchedule == "" {
		cfg.Storage.CleanupSchedule = DefaultCleanupSchedule
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
