package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file when it changes on disk.
// Rapid successive events (editors often write multiple times) are
// debounced into one reload.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
}

// NewWatcher creates a watcher for the given configuration file.
// A debounce of 0 uses the 100ms default.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   slog.Default().With("component", "config.watcher"),
		watcher:  fsw,
	}, nil
}

// Watch blocks until ctx is cancelled, invoking onReload with the freshly
// loaded configuration after each debounced change. Reload failures are
// logged and the previous configuration stays in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory: editors replace the file on save, which drops
	// a watch on the file itself.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("watching configuration", "path", w.path)

	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload(onReload func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		cfg, err := LoadWithEnvOverrides(w.path)
		if err != nil {
			w.logger.Error("configuration reload failed, keeping previous", "error", err)
			return
		}
		w.logger.Info("configuration reloaded", "path", w.path)
		onReload(cfg)
	})
}

// cancelPending stops any armed debounce timer.
func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
