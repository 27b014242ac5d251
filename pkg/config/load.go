package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// SATURN_* environment variable overrides. Environment variables always
// take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Default returns a fully defaulted configuration without reading a file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// applyEnvOverrides applies SATURN_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SATURN_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("SATURN_STORAGE_PATH"); val != "" {
		cfg.Storage.Path = val
	}
	if val := os.Getenv("SATURN_STORAGE_RETENTION"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.Retention = d
		}
	}
	if val := os.Getenv("SATURN_STORAGE_CLEANUP_SCHEDULE"); val != "" {
		cfg.Storage.CleanupSchedule = val
	}

	if val := os.Getenv("SATURN_SERVER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.Enabled = b
		}
	}
	if val := os.Getenv("SATURN_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}

	if val := os.Getenv("SATURN_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("SATURN_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
