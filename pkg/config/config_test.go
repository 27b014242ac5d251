package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "saturn.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// ============================================================================
// Loading
// ============================================================================

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
quotas:
  per_second:
    tokens: 10
    interval: 1s
  per_day:
    tokens: 10000
    interval: 24h
costs:
  list: 1
  search: 100
storage:
  backend: sqlite
  path: /tmp/test-saturn.db
  retention: 48h
  cleanup_schedule: "0 4 * * *"
server:
  enabled: true
  listen_address: "127.0.0.1:9090"
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Quotas) != 2 {
		t.Errorf("Expected 2 quotas, got %d", len(cfg.Quotas))
	}
	if q := cfg.Quotas["per_day"]; q.Tokens != 10000 || q.Interval != 24*time.Hour {
		t.Errorf("Unexpected per_day quota: %+v", q)
	}
	if cfg.Costs["search"] != 100 {
		t.Errorf("Expected search cost 100, got %d", cfg.Costs["search"])
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Retention != 48*time.Hour {
		t.Errorf("Unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9090" {
		t.Errorf("Unexpected listen address %q", cfg.Server.ListenAddress)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Quotas) != 3 {
		t.Errorf("Expected 3 default quotas, got %d", len(cfg.Quotas))
	}
	if q := cfg.Quotas["per_100_seconds"]; q.Tokens != 100 || q.Interval != 100*time.Second {
		t.Errorf("Unexpected default per_100_seconds quota: %+v", q)
	}
	if cfg.Costs["search"] != 100 {
		t.Errorf("Expected default search cost 100, got %d", cfg.Costs["search"])
	}
	if cfg.Storage.Backend != DefaultStorageBackend {
		t.Errorf("Expected default backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != DefaultLogLevel || cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Unexpected default logging: %+v", cfg.Logging)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "quotas: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
`)

	t.Setenv("SATURN_LOGGING_LEVEL", "error")
	t.Setenv("SATURN_STORAGE_BACKEND", "sqlite")
	t.Setenv("SATURN_STORAGE_PATH", "/tmp/override.db")
	t.Setenv("SATURN_SERVER_LISTEN_ADDRESS", "127.0.0.1:7070")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides failed: %v", err)
	}

	if cfg.Logging.Level != "error" {
		t.Errorf("Expected env override for level, got %q", cfg.Logging.Level)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "/tmp/override.db" {
		t.Errorf("Expected env override for storage, got %+v", cfg.Storage)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7070" {
		t.Errorf("Expected env override for listen address, got %q", cfg.Server.ListenAddress)
	}
}

func TestLoadWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfig(t, `{}`)

	t.Setenv("SATURN_LOGGING_LEVEL", "loudest")

	if _, err := LoadWithEnvOverrides(path); err == nil {
		t.Error("Expected validation error for invalid env override")
	}
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"no quotas", func(cfg *Config) { cfg.Quotas = nil }},
		{"zero quota tokens", func(cfg *Config) { q := cfg.Quotas["per_second"]; q.Tokens = 0; cfg.Quotas["per_second"] = q }},
		{"negative quota interval", func(cfg *Config) {
			q := cfg.Quotas["per_second"]
			q.Interval = -time.Second
			cfg.Quotas["per_second"] = q
		}},
		{"zero cost", func(cfg *Config) { cfg.Costs["free"] = 0 }},
		{"unknown backend", func(cfg *Config) { cfg.Storage.Backend = "redis" }},
		{"sqlite without path", func(cfg *Config) { cfg.Storage.Backend = "sqlite"; cfg.Storage.Path = "" }},
		{"zero retention", func(cfg *Config) { cfg.Storage.Retention = 0 }},
		{"bad cron", func(cfg *Config) { cfg.Storage.CleanupSchedule = "whenever" }},
		{"unknown log level", func(cfg *Config) { cfg.Logging.Level = "chatty" }},
		{"unknown log format", func(cfg *Config) { cfg.Logging.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidate_DefaultsPass(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("Default configuration must validate, got %v", err)
	}
}

// ============================================================================
// Watcher
// ============================================================================

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
`)

	watcher, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloaded atomic.Pointer[Config]
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Watch(ctx, func(cfg *Config) {
			reloaded.Store(cfg)
		})
	}()

	// Give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for reloaded.Load() == nil && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	cfg := reloaded.Load()
	if cfg == nil {
		t.Fatal("Expected a reload after file change")
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Expected reloaded level error, got %q", cfg.Logging.Level)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Watcher did not stop after cancellation")
	}
}

func TestWatcher_KeepsPreviousOnInvalidReload(t *testing.T) {
	path := writeConfig(t, `{}`)

	watcher, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int64
	go func() {
		_ = watcher.Watch(ctx, func(*Config) { reloads.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	// Invalid content must not trigger the callback
	if err := os.WriteFile(path, []byte("logging:\n  level: bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if got := reloads.Load(); got != 0 {
		t.Errorf("Expected no reloads for invalid config, got %d", got)
	}
}
