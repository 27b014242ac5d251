package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"calibra-hq/saturn/pkg/cli"
	"calibra-hq/saturn/pkg/config"
	"calibra-hq/saturn/pkg/gate"
	"calibra-hq/saturn/pkg/server"
	"calibra-hq/saturn/pkg/storage"
	"calibra-hq/saturn/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn ops server",
	Long: `Start the Saturn ops server with the specified configuration.

The server exposes health, metrics, quota status, and a remote admission
endpoint backed by the configured token budgets.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Override listen address
  saturn run --listen 0.0.0.0:8080

  # Reload quotas and costs when the config file changes
  saturn run --watch

  # Validate config without starting the server
  saturn run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "watch the config file and log pending changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Saturn v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Decision audit storage
	store, err := buildStorage(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	g, err := gate.New(gate.Config{
		Quotas:  cfg.Quotas,
		Costs:   cfg.Costs,
		Store:   store,
		Metrics: gate.NewMetrics(),
		Logger:  logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer g.Close()

	fmt.Printf("✓ Gate initialized (%d quotas, %d costed operations)\n",
		len(cfg.Quotas), len(cfg.Costs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled audit-log pruning
	if cfg.Storage.CleanupSchedule != "" {
		scheduler := storage.NewScheduler(store, cfg.Storage.CleanupSchedule, cfg.Storage.Retention)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start cleanup scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			fmt.Printf("✓ Cleanup scheduler started (schedule %q)\n", cfg.Storage.CleanupSchedule)
		}
	}

	// Config file watcher
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			slog.Warn("failed to start config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					// Quota and cost changes need a restart; say so instead
					// of silently ignoring the edit.
					slog.Info("configuration file changed",
						"path", cfgFile,
						"quotas", len(next.Quotas),
						"note", "quota and cost changes take effect on restart",
					)
				})
				if err != nil {
					slog.Warn("config watcher stopped", "error", err)
				}
			}()
			fmt.Printf("✓ Watching %s for changes\n", cfgFile)
		}
	}

	if !cfg.Server.Enabled {
		fmt.Println("\nOps server disabled; press Ctrl+C to stop")
		<-cli.WaitForShutdown()
		fmt.Println("\n✓ Stopped")
		return nil
	}

	srv := server.New(&cfg.Server, g, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Give the listener a moment before printing endpoints.
	time.Sleep(100 * time.Millisecond)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Quota status: http://%s/v1/quotas\n", cfg.Server.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// loadConfig loads the configured file, falling back to defaults when the
// default path does not exist and --config was not given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			return config.Default(), nil
		}
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}

func buildStorage(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		backend, err := storage.NewSQLiteBackend(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		fmt.Printf("✓ Audit storage: sqlite (%s)\n", cfg.Storage.Path)
		return backend, nil
	case "memory":
		backend := storage.NewMemoryBackendWithConfig(storage.MemoryBackendConfig{
			MaxEntries:      cfg.Storage.MaxEntries,
			RetentionPeriod: cfg.Storage.Retention,
		})
		fmt.Println("✓ Audit storage: memory")
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
