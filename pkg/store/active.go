// active.go implements the active-alert set: the locally-owned alerts that
// are currently eligible for display, snooze, or dismissal. All
// read-modify-write sequences are single statements or transactions so
// overlapping trigger paths cannot interleave on the same AlertKey.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"remindd/pkg/model"
)

const activeColumns = `event_id, alert_time, instance_start, calendar_id, title, location,
	start_time, end_time, color, all_day, repeating, snoozed_until,
	display, last_visibility, origin, muted`

// UpsertActive inserts an active alert, or replaces the stored row if the
// key already exists. Duplicate inserts are an update in place, not an
// error — both detection paths may race to insert the same AlertKey.
func (s *Store) UpsertActive(a model.ActiveAlert) error {
	disp, err := displayCode(a.Display)
	if err != nil {
		return err
	}
	orig, err := originCode(a.Origin)
	if err != nil {
		return err
	}
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO active_alerts (`+activeColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(event_id, alert_time, instance_start) DO UPDATE SET
			   calendar_id = excluded.calendar_id,
			   title = excluded.title,
			   location = excluded.location,
			   start_time = excluded.start_time,
			   end_time = excluded.end_time,
			   color = excluded.color,
			   all_day = excluded.all_day,
			   repeating = excluded.repeating`,
			a.Key.EventID, int64(a.Key.AlertTime), int64(a.Key.InstanceStart),
			a.CalendarID, a.Title, a.Location,
			int64(a.Start), int64(a.End), a.Color,
			boolToInt(a.AllDay), boolToInt(a.Repeating), int64(a.SnoozedUntil),
			disp, int64(a.LastVisibility), orig, boolToInt(a.Muted),
		)
		return err
	})
}

// Active retrieves one active alert by key. Returns ErrNotFound if absent.
func (s *Store) Active(key model.AlertKey) (*model.ActiveAlert, error) {
	row := s.db.QueryRow(
		`SELECT `+activeColumns+` FROM active_alerts
		 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
		key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
	)
	a, err := scanActive(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("active lookup: %w", err)
	}
	return a, nil
}

// ListActive returns all active alerts ordered by alert time, then
// occurrence start, then event ID. The order is deterministic so that
// presenter partitioning and snooze-all perturbation are stable.
func (s *Store) ListActive() ([]model.ActiveAlert, error) {
	return s.listActiveWhere(``)
}

// ListVisible returns the active alerts currently due for display
// (snoozed_until == 0), in the same deterministic order as ListActive.
func (s *Store) ListVisible() ([]model.ActiveAlert, error) {
	return s.listActiveWhere(`WHERE snoozed_until = 0`)
}

func (s *Store) listActiveWhere(where string) ([]model.ActiveAlert, error) {
	rows, err := s.db.Query(
		`SELECT ` + activeColumns + ` FROM active_alerts ` + where +
			` ORDER BY alert_time ASC, instance_start ASC, event_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.ActiveAlert
	for rows.Next() {
		a, err := scanActive(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// SetDisplay updates the display status of one alert. A nonzero visibleAt
// also records the transition time.
func (s *Store) SetDisplay(key model.AlertKey, d model.DisplayStatus, visibleAt model.UnixMillis) error {
	code, err := displayCode(d)
	if err != nil {
		return err
	}
	return retryOnContention(func() error {
		if visibleAt != 0 {
			_, err := s.db.Exec(
				`UPDATE active_alerts SET display = ?, last_visibility = ?
				 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
				code, int64(visibleAt), key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
			)
			return err
		}
		_, err := s.db.Exec(
			`UPDATE active_alerts SET display = ?
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			code, key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
		)
		return err
	})
}

// SnoozeActive parks the alert until the given instant and hides it.
func (s *Store) SnoozeActive(key model.AlertKey, until model.UnixMillis) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`UPDATE active_alerts SET snoozed_until = ?, display = 0
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			int64(until), key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
		)
		return err
	})
}

// WakeExpiredSnoozes clears snoozed_until for every alert whose snooze has
// expired at now, returning them to the "due for display" state in a single
// atomic statement. Returns the number of alerts woken.
func (s *Store) WakeExpiredSnoozes(now model.UnixMillis) (int64, error) {
	var woken int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`UPDATE active_alerts SET snoozed_until = 0, display = 0
			 WHERE snoozed_until > 0 AND snoozed_until <= ?`, int64(now),
		)
		if err != nil {
			return err
		}
		woken, err = res.RowsAffected()
		return err
	})
	return woken, err
}

// SetMuted updates the mute flag of one alert.
func (s *Store) SetMuted(key model.AlertKey, muted bool) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`UPDATE active_alerts SET muted = ?
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			boolToInt(muted), key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
		)
		return err
	})
}

// UpdateActiveFromRecord overwrites the mutable event fields of an alert
// with the gateway's current truth and hides it so the presenter treats it
// as new. Used by the drift reconciler when an event was edited upstream.
func (s *Store) UpdateActiveFromRecord(key model.AlertKey, r *model.AlertRecord) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`UPDATE active_alerts SET
			   title = ?, location = ?, start_time = ?, end_time = ?, color = ?,
			   all_day = ?, repeating = ?, display = 0
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			r.Title, r.Location, int64(r.Start), int64(r.End), r.Color,
			boolToInt(r.AllDay), boolToInt(r.Repeating),
			key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
		)
		return err
	})
}

// ShiftActive re-points an alert at a new occurrence: the key's alert time
// and instance start change along with the event window. This is a distinct
// path from UpdateActiveFromRecord because the instance time participates
// in the primary key. Runs in a transaction; any row already sitting at the
// target key is replaced.
func (s *Store) ShiftActive(old, shifted model.AlertKey, start, end model.UnixMillis) error {
	if shifted.EventID != old.EventID {
		return fmt.Errorf("shift: event ID mismatch (%d -> %d)", old.EventID, shifted.EventID)
	}
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if _, err := tx.Exec(
			`DELETE FROM active_alerts
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?
			   AND NOT (alert_time = ? AND instance_start = ?)`,
			shifted.EventID, int64(shifted.AlertTime), int64(shifted.InstanceStart),
			int64(old.AlertTime), int64(old.InstanceStart),
		); err != nil {
			return fmt.Errorf("clear target key: %w", err)
		}

		if _, err := tx.Exec(
			`UPDATE active_alerts SET
			   alert_time = ?, instance_start = ?, start_time = ?, end_time = ?,
			   snoozed_until = 0, display = 0
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			int64(shifted.AlertTime), int64(shifted.InstanceStart), int64(start), int64(end),
			old.EventID, int64(old.AlertTime), int64(old.InstanceStart),
		); err != nil {
			return fmt.Errorf("shift key: %w", err)
		}

		return tx.Commit()
	})
}

// DeleteActive removes one alert. Reports whether a row was removed. The
// ledger entry for the key is deliberately untouched; it persists for dedup.
func (s *Store) DeleteActive(key model.AlertKey) (bool, error) {
	var removed bool
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`DELETE FROM active_alerts
			 WHERE event_id = ? AND alert_time = ? AND instance_start = ?`,
			key.EventID, int64(key.AlertTime), int64(key.InstanceStart),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		removed = n > 0
		return err
	})
	return removed, err
}

// DeleteAllActive removes every active alert. Returns the number removed.
func (s *Store) DeleteAllActive() (int64, error) {
	var removed int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(`DELETE FROM active_alerts`)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// ActiveCount returns the number of active alerts.
func (s *Store) ActiveCount() int64 {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM active_alerts`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// scanActive reads one active_alerts row via the given scan function, which
// works for both *sql.Row and *sql.Rows.
func scanActive(scan func(...any) error) (*model.ActiveAlert, error) {
	var a model.ActiveAlert
	var alertTime, instanceStart, start, end, snoozed, lastVis int64
	var allDay, repeating, dispCode, origCode, muted int
	if err := scan(
		&a.Key.EventID, &alertTime, &instanceStart, &a.CalendarID, &a.Title, &a.Location,
		&start, &end, &a.Color, &allDay, &repeating, &snoozed,
		&dispCode, &lastVis, &origCode, &muted,
	); err != nil {
		return nil, err
	}
	a.Key.AlertTime = model.UnixMillis(alertTime)
	a.Key.InstanceStart = model.UnixMillis(instanceStart)
	a.Start = model.UnixMillis(start)
	a.End = model.UnixMillis(end)
	a.SnoozedUntil = model.UnixMillis(snoozed)
	a.LastVisibility = model.UnixMillis(lastVis)
	a.AllDay = allDay != 0
	a.Repeating = repeating != 0
	a.Muted = muted != 0

	var err error
	if a.Display, err = displayFromCode(dispCode); err != nil {
		return nil, err
	}
	if a.Origin, err = originFromCode(origCode); err != nil {
		return nil, err
	}
	return &a, nil
}
