// cursors.go persists the scheduler's scan cursors: small scalar values
// recording where each detection path has progressed to and what it last
// promised to wake for. Losing a cursor is safe (the next scan rebuilds it)
// but advancing one past an unprocessed alert is not, so writes happen only
// after the corresponding alerts have been fully handled.
package store

import "remindd/pkg/model"

// Cursor names. "provider" cursors track the push path's view of the
// calendar subsystem's own delivery; "scan" cursors track the polling
// fallback's forward walk.
const (
	CursorNextFireProvider = "next_fire_provider"
	CursorPrevFireProvider = "prev_fire_provider"
	CursorNextFireScan     = "next_fire_scan"
	CursorPrevFireScan     = "prev_fire_scan"
)

// GetCursor returns the stored cursor value (0 if unset).
func (s *Store) GetCursor(name string) model.UnixMillis {
	var v int64
	if err := s.db.QueryRow(
		`SELECT value FROM cursors WHERE name = ?`, name,
	).Scan(&v); err != nil {
		return 0
	}
	return model.UnixMillis(v)
}

// SetCursor updates a cursor value. Idempotent via ON CONFLICT.
func (s *Store) SetCursor(name string, v model.UnixMillis) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO cursors (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, int64(v),
		)
		return err
	})
}
