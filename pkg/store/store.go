// Package store manages all SQLite persistence for remindd.
//
// SQLite in WAL mode holds the three durable stores the engine depends on:
// the alert ledger (which alerts were already acted upon), the active-alert
// set (what should be visible right now), and the scheduler cursors. The
// engine must survive process restarts with no lost or double-fired alerts,
// so every mutation here is an atomic statement or transaction; callers
// never do a read-then-write across store calls.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store manages all SQLite operations with WAL mode for concurrent access.
// The CLI, the daemon's timer callbacks, and the push watcher may all hit
// the database in overlapping wall-clock time.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
// All store write operations should use this to handle transient SQLite
// errors (BUSY, LOCKED, IOERR_SHORT_READ) under concurrent triggers.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger (
		event_id       INTEGER NOT NULL,
		alert_time     INTEGER NOT NULL,
		instance_start INTEGER NOT NULL,
		was_handled    INTEGER NOT NULL DEFAULT 0,
		created_by_us  INTEGER NOT NULL DEFAULT 0,
		all_day        INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (event_id, alert_time, instance_start)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_alert_time ON ledger(alert_time);

	CREATE TABLE IF NOT EXISTS active_alerts (
		event_id        INTEGER NOT NULL,
		alert_time      INTEGER NOT NULL,
		instance_start  INTEGER NOT NULL,
		calendar_id     INTEGER NOT NULL DEFAULT 0,
		title           TEXT NOT NULL DEFAULT '',
		location        TEXT NOT NULL DEFAULT '',
		start_time      INTEGER NOT NULL DEFAULT 0,
		end_time        INTEGER NOT NULL DEFAULT 0,
		color           INTEGER NOT NULL DEFAULT 0,
		all_day         INTEGER NOT NULL DEFAULT 0,
		repeating       INTEGER NOT NULL DEFAULT 0,
		snoozed_until   INTEGER NOT NULL DEFAULT 0,
		display         INTEGER NOT NULL DEFAULT 0,
		last_visibility INTEGER NOT NULL DEFAULT 0,
		origin          INTEGER NOT NULL DEFAULT 0,
		muted           INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (event_id, alert_time, instance_start)
	);

	CREATE INDEX IF NOT EXISTS idx_active_snoozed ON active_alerts(snoozed_until);

	CREATE TABLE IF NOT EXISTS cursors (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
