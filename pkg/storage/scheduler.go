package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler prunes old decisions from a backend on a cron schedule.
type Scheduler struct {
	backend   Backend
	schedule  string
	retention time.Duration

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewScheduler creates a retention scheduler.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//
// Retention is how long decisions are kept; records older than that are
// deleted on each run.
func NewScheduler(backend Backend, schedule string, retention time.Duration) *Scheduler {
	return &Scheduler{
		backend:   backend,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(),
		logger:    slog.Default().With("component", "storage.scheduler"),
	}
}

// Start begins scheduled pruning. An empty schedule disables the scheduler.
// Stopping follows ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("cleanup schedule not configured, skipping scheduler")
		return nil
	}
	if s.retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", s.retention)
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runCleanup(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.schedule,
		"retention", s.retention.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runCleanup executes one pruning cycle.
func (s *Scheduler) runCleanup(ctx context.Context) {
	deleted, err := s.backend.Cleanup(ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.logger.Error("scheduled cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled cleanup completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled cleanup completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
