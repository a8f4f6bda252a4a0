// actions.go carries the user-initiated operations: snooze, dismiss,
// restore, mute. Each one mutates the active set, withdraws or refreshes
// notifications, and re-arms the wake timer. None of them touch the
// ledger; handled-state outlives the alerts it deduplicates.
package engine

import (
	"errors"
	"time"

	"remindd/pkg/applog"
	"remindd/pkg/clock"
	"remindd/pkg/model"
	"remindd/pkg/notify"
	"remindd/pkg/store"
)

// ErrNoAlert is returned when an operation targets an alert that is not in
// the active set.
var ErrNoAlert = errors.New("no such active alert")

// SnoozeOne parks one alert. delay > 0 snoozes to now+delay; delay < 0
// snoozes relative to the event's own start time (so -5m wakes shortly
// before the event begins). The resulting instant is always strictly in
// the future.
func (e *Engine) SnoozeOne(key model.AlertKey, delay time.Duration) (model.UnixMillis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.store.Active(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNoAlert
		}
		return 0, err
	}

	now := clock.NowMillis(e.clk)
	until := e.snoozeTarget(a, now, delay)
	if err := e.store.SnoozeActive(key, until); err != nil {
		return 0, err
	}

	e.pres.Remove(key)
	e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	e.rescheduleLocked()
	applog.Info("alert snoozed", "event", key.EventID, "until", until)
	return until, nil
}

// SnoozeAll applies one delay to every active alert, perturbing each
// successive wake instant by a strictly increasing step so no two alerts
// share one and display order stays deterministic. With forced=false an
// alert already snoozed further into the future keeps its existing time;
// snoozes never move backward. Returns how many alerts were (re)snoozed.
func (e *Engine) SnoozeAll(delay time.Duration, forced bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alerts, err := e.store.ListActive()
	if err != nil {
		return 0, err
	}

	now := clock.NowMillis(e.clk)
	step := model.UnixMillis(e.opts.SnoozeStep.Milliseconds())
	count := 0
	for i := range alerts {
		a := &alerts[i]
		until := e.snoozeTarget(a, now, delay) + model.UnixMillis(i)*step
		if !forced && a.SnoozedUntil > until {
			continue
		}
		if err := e.store.SnoozeActive(a.Key, until); err != nil {
			applog.Error("snooze-all skipped alert", err, "event", a.Key.EventID)
			continue
		}
		e.pres.Remove(a.Key)
		count++
	}

	e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	e.rescheduleLocked()
	applog.Info("snoozed all", "count", count, "forced", forced)
	return count, nil
}

// snoozeTarget computes the wake instant for one alert, clamped strictly
// into the future.
func (e *Engine) snoozeTarget(a *model.ActiveAlert, now model.UnixMillis, delay time.Duration) model.UnixMillis {
	var until model.UnixMillis
	if delay < 0 {
		until = a.Start + model.UnixMillis(delay.Milliseconds())
	} else {
		until = now + model.UnixMillis(delay.Milliseconds())
	}
	if until <= now {
		until = now + model.UnixMillis(e.opts.SnoozeStep.Milliseconds())
	}
	return until
}

// Dismiss removes one alert and its notification. The ledger entry stays,
// so neither detection path can resurrect the alert.
func (e *Engine) Dismiss(key model.AlertKey) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.store.DeleteActive(key)
	if err != nil {
		return false, err
	}
	if removed {
		e.pres.Remove(key)
		e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
		applog.Info("alert dismissed", "event", key.EventID)
	}
	e.rescheduleLocked()
	return removed, nil
}

// DismissAll clears the whole active set and every notification.
func (e *Engine) DismissAll() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.store.DeleteAllActive()
	if err != nil {
		return 0, err
	}
	e.pres.RemoveAll()
	e.rescheduleLocked()
	applog.Info("dismissed all", "count", n)
	return n, nil
}

// Restore re-inserts a previously dismissed alert, e.g. for undo. The
// alert comes back as fully manual and is not validated against the
// ledger; restore must work even though the key is marked handled.
func (e *Engine) Restore(a model.ActiveAlert) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a.Origin = model.FullyManual
	a.Display = model.Hidden
	a.SnoozedUntil = 0
	if err := e.store.UpsertActive(a); err != nil {
		return err
	}

	e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	e.rescheduleLocked()
	applog.Info("alert restored", "event", a.Key.EventID, "at", a.Key.AlertTime)
	return nil
}

// MuteToggle flips one alert's mute flag and returns the new state.
func (e *Engine) MuteToggle(key model.AlertKey) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.store.Active(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrNoAlert
		}
		return false, err
	}
	muted := !a.Muted
	if err := e.store.SetMuted(key, muted); err != nil {
		return false, err
	}
	e.rescheduleLocked()
	return muted, nil
}
