package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite for durable storage.
// It is suitable for single-instance deployments that need the audit trail
// to survive restarts.
//
// The database runs in write-ahead log (WAL) mode for better concurrent
// read performance.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string

	recordStmt  *sql.Stmt
	listStmt    *sql.Stmt
	cleanupStmt *sql.Stmt

	mu        sync.RWMutex
	closeOnce sync.Once
	closeErr  error
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:     db,
		dbPath: cfg.DBPath,
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		operation TEXT NOT NULL,
		cost INTEGER NOT NULL,
		allowed INTEGER NOT NULL,
		wait_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_decisions_operation ON decisions(operation);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.recordStmt, err = s.db.Prepare(`
		INSERT INTO decisions (id, timestamp, operation, cost, allowed, wait_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, timestamp, operation, cost, allowed, wait_ns
		FROM decisions
		WHERE timestamp >= ?
		ORDER BY timestamp DESC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM decisions
		WHERE timestamp < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Record persists one decision.
func (s *SQLiteBackend) Record(ctx context.Context, d *Decision) error {
	if d == nil {
		return ErrNilDecision
	}
	if d.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := 0
	if d.Allowed {
		allowed = 1
	}

	_, err := s.recordStmt.ExecContext(ctx,
		d.ID,
		d.Timestamp.UnixNano(),
		d.Operation,
		d.Cost,
		allowed,
		int64(d.WaitDuration),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return nil
}

// List returns decisions taken at or after since, newest first.
func (s *SQLiteBackend) List(ctx context.Context, since time.Time) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*Decision
	for rows.Next() {
		var (
			d       Decision
			tsNanos int64
			allowed int
			waitNS  int64
		)
		if err := rows.Scan(&d.ID, &tsNanos, &d.Operation, &d.Cost, &allowed, &waitNS); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Timestamp = time.Unix(0, tsNanos)
		d.Allowed = allowed != 0
		d.WaitDuration = time.Duration(waitNS)
		decisions = append(decisions, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}

	return decisions, nil
}

// Cleanup removes decisions older than the given time.
func (s *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup decisions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return int(deleted), nil
}

// Close releases the database handle and prepared statements.
func (s *SQLiteBackend) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.recordStmt != nil {
			s.recordStmt.Close()
		}
		if s.listStmt != nil {
			s.listStmt.Close()
		}
		if s.cleanupStmt != nil {
			s.cleanupStmt.Close()
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
