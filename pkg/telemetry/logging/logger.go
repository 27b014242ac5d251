// Package logging provides structured logging for Saturn.
//
// Loggers are built on log/slog with a configurable minimum level and
// output format (JSON for machines, text for humans). Components tag
// their loggers with a "component" attribute:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	logger = logger.With("component", "gate")
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config contains configuration for a Logger.
type Config struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format is the output format: "json" or "text".
	Format string

	// Writer is the output writer. Defaults to os.Stderr.
	Writer io.Writer
}

// New creates a slog.Logger from the given configuration.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text", "":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(handler), nil
}

// Setup builds a logger from the configuration and installs it as the
// process default, so packages using slog.Default() pick it up.
func Setup(cfg Config) (*slog.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
