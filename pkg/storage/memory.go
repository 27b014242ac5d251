package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage.
// This is the default backend: fast, bounded, and lost on process exit.
//
// When the entry limit is reached the oldest decisions are evicted. A
// background loop additionally prunes decisions past the retention period.
type MemoryBackend struct {
	decisions []*Decision
	mu        sync.RWMutex

	maxEntries int
	done       chan struct{}
	closeOnce  sync.Once
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// MaxEntries is the maximum number of decisions to retain.
	// Oldest entries are evicted when the limit is reached.
	// Default: 10,000
	MaxEntries int

	// CleanupInterval is how often to prune expired entries.
	// Default: 1 minute
	CleanupInterval time.Duration

	// RetentionPeriod is how long to keep decisions.
	// Default: 24 hours
	RetentionPeriod time.Duration
}

// NewMemoryBackend creates an in-memory backend with default settings.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(MemoryBackendConfig{})
}

// NewMemoryBackendWithConfig creates an in-memory backend with custom settings.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) *MemoryBackend {
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.RetentionPeriod == 0 {
		cfg.RetentionPeriod = 24 * time.Hour
	}

	backend := &MemoryBackend{
		decisions:  make([]*Decision, 0, 128),
		maxEntries: cfg.MaxEntries,
		done:       make(chan struct{}),
	}

	go backend.cleanupLoop(cfg.CleanupInterval, cfg.RetentionPeriod)

	return backend
}

// Record persists one decision.
func (m *MemoryBackend) Record(ctx context.Context, d *Decision) error {
	if d == nil {
		return ErrNilDecision
	}
	if d.ID == "" {
		return ErrEmptyID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.decisions = append(m.decisions, d)

	// Evict oldest entries past the cap
	if len(m.decisions) > m.maxEntries {
		overflow := len(m.decisions) - m.maxEntries
		m.decisions = append(m.decisions[:0:0], m.decisions[overflow:]...)
	}

	return nil
}

// List returns decisions taken at or after since, newest first.
func (m *MemoryBackend) List(ctx context.Context, since time.Time) ([]*Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Decision, 0, len(m.decisions))
	for _, d := range m.decisions {
		if !d.Timestamp.Before(since) {
			result = append(result, d)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result, nil
}

// Cleanup removes decisions older than the given time.
func (m *MemoryBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.decisions[:0]
	for _, d := range m.decisions {
		if !d.Timestamp.Before(olderThan) {
			kept = append(kept, d)
		}
	}

	deleted := len(m.decisions) - len(kept)
	m.decisions = kept

	return deleted, nil
}

// Close stops the cleanup loop.
func (m *MemoryBackend) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

// cleanupLoop periodically prunes decisions past the retention period.
func (m *MemoryBackend) cleanupLoop(interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, _ = m.Cleanup(context.Background(), time.Now().Add(-retention))
		}
	}
}
