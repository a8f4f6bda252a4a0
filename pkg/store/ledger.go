// ledger.go implements the alert ledger: the durable record of which
// (event, alert time, occurrence) triples have already been observed and
// acted upon. Both detection paths check the ledger before firing, which is
// the central dedup invariant of the engine.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"remindd/pkg/model"
)

// UpsertLedger records the observation of an alert. A duplicate insert is
// treated as an update in place, never an error: the push and poll paths
// may race to record the same AlertKey. WasHandled is only ever raised,
// never lowered, so a racing re-insert cannot resurrect a handled alert.
func (s *Store) UpsertLedger(e model.LedgerEntry) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO ledger (event_id, alert_time, instance_start, was_handled, created_by_us, all_day)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(event_id, alert_time, instance_start) DO UPDATE SET
			   was_handled = MAX(ledger.was_handled, excluded.was_handled)`,
			e.Key.EventID, int64(e.Key.AlertTime), int64(e.Key.InstanceStart),
			boolToInt(e.WasHandled), boolToInt(e.CreatedByUs), boolToInt(e.AllDay),
		)
		return err
	})
}

// Ledger retrieves a ledger entry by key. Returns ErrNotFound if the alert
// has never been observed.
func (s *Store) Ledger(key model.AlertKey) (*model.LedgerEntry, error) {
	row := s.db.QueryRow(
		`SELECT was_handled, created_by_us, all_day FROM ledger
		 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
		key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
	)
	var handled, createdByUs, allDay int
	if err := row.Scan(&handled, &createdByUs, &allDay); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	return &model.LedgerEntry{
		Key:         key,
		WasHandled:  handled != 0,
		CreatedByUs: createdByUs != 0,
		AllDay:      allDay != 0,
	}, nil
}

// IsHandled reports whether the alert has already been handled. An alert
// that was never observed is not handled.
func (s *Store) IsHandled(key model.AlertKey) (bool, error) {
	e, err := s.Ledger(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.WasHandled, nil
}

// MarkHandled flips WasHandled for an existing entry. The flip is the only
// mutation a ledger entry ever receives.
func (s *Store) MarkHandled(key model.AlertKey) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`UPDATE ledger SET was_handled = 1
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
		)
		return err
	})
}

// PruneLedgerBefore garbage-collects entries whose alert time is before the
// cutoff. Returns the number of rows removed.
func (s *Store) PruneLedgerBefore(cutoff model.UnixMillis) (int64, error) {
	var pruned int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(`DELETE FROM ledger WHERE alert_time < ?`, int64(cutoff))
		if err != nil {
			return err
		}
		pruned, err = res.RowsAffected()
		return err
	})
	return pruned, err
}

// LedgerCount returns the total number of ledger entries.
func (s *Store) LedgerCount() int64 {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ledger`).Scan(&count); err != nil {
		return 0
	}
	return count
}
