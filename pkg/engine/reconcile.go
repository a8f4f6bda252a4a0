package engine

import (
	"remindd/pkg/applog"
	"remindd/pkg/model"
	"remindd/pkg/notify"
)

// ReconcileActive compares every outstanding active alert against live
// calendar data and folds in edits, moves and reschedules. Returns whether
// anything changed (which drives re-notification).
//
// An event that cannot be found at all is left untouched: a transient
// provider failure is indistinguishable from a deletion, and a stale alert
// lingering costs less than a legitimate alert silently vanishing. The
// user can always dismiss it.
func (e *Engine) ReconcileActive() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	release := e.wake.Acquire()
	defer release()

	alerts, err := e.store.ListActive()
	if err != nil {
		return false, err
	}

	changed := false
	for i := range alerts {
		c, err := e.reconcileOne(&alerts[i])
		if err != nil {
			applog.Error("reconcile skipped alert", err, "event", alerts[i].Key.EventID)
			continue
		}
		changed = changed || c
	}

	if changed {
		e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	}
	e.rescheduleLocked()
	return changed, nil
}

func (e *Engine) reconcileOne(a *model.ActiveAlert) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			changed = false
			err = errPanic(r)
		}
	}()

	rec, err := e.gw.AlertAt(a.Key.EventID, a.Key.AlertTime)
	if err != nil {
		return false, err
	}

	if rec != nil {
		// Non-repeating events whose occurrence itself moved take the
		// explicit shift path: instance start is part of the key.
		if !a.Repeating && rec.Key.InstanceStart != a.Key.InstanceStart {
			if err := e.store.ShiftActive(a.Key, rec.Key, rec.Start, rec.End); err != nil {
				return false, err
			}
			applog.Info("alert occurrence shifted",
				"event", a.Key.EventID, "from", a.Key.InstanceStart, "to", rec.Key.InstanceStart)
			return true, nil
		}
		if !fieldsMatch(a, rec) {
			if err := e.store.UpdateActiveFromRecord(a.Key, rec); err != nil {
				return false, err
			}
			applog.Info("alert fields refreshed", "event", a.Key.EventID)
			return true, nil
		}
		return false, nil
	}

	// No occurrence answers to this alert time anymore.
	if a.Repeating {
		// A vanished instance of a repeating event is not reliably
		// attributable; leave it for the user.
		return false, nil
	}

	ev, err := e.gw.Event(a.Key.EventID)
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}
	if ev.NextAlarm == 0 || ev.NextAlarm == a.Key.AlertTime {
		return false, nil
	}

	// The event still exists with a different upcoming alarm: re-point the
	// alert at the new occurrence.
	shifted := model.AlertKey{
		EventID:       a.Key.EventID,
		AlertTime:     ev.NextAlarm,
		InstanceStart: ev.Start,
	}
	if err := e.store.ShiftActive(a.Key, shifted, ev.Start, ev.End); err != nil {
		return false, err
	}
	applog.Info("alert re-pointed at future occurrence",
		"event", a.Key.EventID, "alarm", ev.NextAlarm)
	return true, nil
}

// fieldsMatch compares the mutable event fields of an active alert against
// the gateway's current record.
func fieldsMatch(a *model.ActiveAlert, rec *model.AlertRecord) bool {
	return a.Title == rec.Title &&
		a.Location == rec.Location &&
		a.Start == rec.Start &&
		a.End == rec.End &&
		a.Color == rec.Color &&
		a.AllDay == rec.AllDay &&
		a.Repeating == rec.Repeating
}
