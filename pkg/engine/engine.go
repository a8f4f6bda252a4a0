// Package engine implements the dual-path alert detector and the
// orchestration around it.
//
// Two independent paths observe calendar alerts: a push path driven by
// source-change callbacks and a polling fallback that walks forward through
// time. Both funnel through the same ledger check, so whichever path sees
// an alert first wins and double delivery is harmless. A single mutex
// serializes every trigger (push, timer fire, user action); each trigger
// runs to completion quickly and the next one re-evaluates from persisted
// state, so operations are resumable rather than cancellable.
package engine

import (
	"fmt"
	"sync"
	"time"

	"remindd/pkg/applog"
	"remindd/pkg/clock"
	"remindd/pkg/gateway"
	"remindd/pkg/model"
	"remindd/pkg/notify"
	"remindd/pkg/sched"
	"remindd/pkg/store"
)

// WakeSource keeps the process from being suspended mid-operation. Acquire
// returns a release func that must run on every exit path.
type WakeSource interface {
	Acquire() (release func())
}

// NopWake is the default WakeSource for platforms without suspend.
type NopWake struct{}

func (NopWake) Acquire() func() { return func() {} }

// Options tune the engine. Zero values get sensible defaults.
type Options struct {
	// SafetyThreshold is how far past "now" the forward scan treats alerts
	// as already due, absorbing small timer and clock skew.
	SafetyThreshold time.Duration

	// ScanCap bounds the forward-scan loop so a misbehaving gateway cannot
	// trap the engine in unbounded work.
	ScanCap int

	// SnoozeStep separates successive snooze-all wake instants and is the
	// minimum distance into the future any snooze may land.
	SnoozeStep time.Duration

	// DriftTolerance is how late a wake may arrive before it is logged as
	// scheduling drift.
	DriftTolerance time.Duration

	// Quiet mirrors the scheduler's quiet window so quiet posts line up
	// with deferred wakes.
	Quiet sched.QuietConfig
}

func (o *Options) normalize() {
	if o.SafetyThreshold <= 0 {
		o.SafetyThreshold = 2 * time.Second
	}
	if o.ScanCap <= 0 {
		o.ScanCap = 100
	}
	if o.SnoozeStep <= 0 {
		o.SnoozeStep = time.Second
	}
	if o.DriftTolerance <= 0 {
		o.DriftTolerance = 30 * time.Second
	}
}

// Engine ties the store, gateway, presenter and planner together. All
// public methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	store   store.StoreInterface
	gw      gateway.Gateway
	clk     clock.Clock
	pres    *notify.Presenter
	planner *sched.Planner
	wake    WakeSource
	opts    Options

	// lastPromise is the wake instant we most recently asked for, used to
	// detect scheduling drift when the wake actually arrives.
	lastPromise model.UnixMillis
}

// New builds an engine. wake may be nil (NopWake is used).
func New(st store.StoreInterface, gw gateway.Gateway, clk clock.Clock,
	pres *notify.Presenter, planner *sched.Planner, wake WakeSource, opts Options) *Engine {
	if wake == nil {
		wake = NopWake{}
	}
	opts.normalize()
	return &Engine{
		store:   st,
		gw:      gw,
		clk:     clk,
		pres:    pres,
		planner: planner,
		wake:    wake,
		opts:    opts,
	}
}

// HandlePush processes a batch of alerts reported for one alert time. It
// is idempotent: alerts already handled in the ledger are skipped. Returns
// how many alerts were newly accepted.
func (e *Engine) HandlePush(at model.UnixMillis) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	release := e.wake.Acquire()
	defer release()

	alerts, err := e.gw.AlertsAt(at)
	if err != nil {
		applog.Error("push batch read failed", err, "at", at)
		return 0, err
	}

	accepted := 0
	for i := range alerts {
		ok, err := e.acceptOne(&alerts[i], model.PushObserved)
		if err != nil {
			applog.Error("push alert skipped", err, "event", alerts[i].Key.EventID)
			continue
		}
		if ok {
			accepted++
		}
	}

	if err := e.store.SetCursor(store.CursorPrevFireProvider, at); err != nil {
		applog.Error("provider cursor update failed", err)
	}
	if next, found, err := e.gw.NextAlarmTime(at + 1); err == nil && found {
		if err := e.store.SetCursor(store.CursorNextFireProvider, next); err != nil {
			applog.Error("provider cursor update failed", err)
		}
	}

	e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	e.rescheduleLocked()
	return accepted, nil
}

// ScanResult reports one forward-scan pass.
type ScanResult struct {
	// NextWake is the earliest known future alert time (0 = none known).
	NextWake model.UnixMillis
	// FiredAny is true when at least one new alert was accepted.
	FiredAny bool
	// Scanned counts how many alert times the pass visited.
	Scanned int
}

// ScanForward is the polling fallback. It walks the persisted scan cursor
// through every alert time at or before now+SafetyThreshold, accepts the
// not-yet-handled ones, then probes once for the next future alert and
// persists the minimum as the new cursor. A gateway error aborts the pass
// with the cursor parked at the unprocessed time so the next trigger
// retries; the cursor never advances past an alert that failed.
func (e *Engine) ScanForward() (ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	release := e.wake.Acquire()
	defer release()
	return e.scanForwardLocked()
}

func (e *Engine) scanForwardLocked() (ScanResult, error) {
	now := clock.NowMillis(e.clk)
	threshold := now + model.UnixMillis(e.opts.SafetyThreshold.Milliseconds())

	cursor := e.store.GetCursor(store.CursorNextFireScan)
	if cursor == 0 {
		first, found, err := e.gw.NextAlarmTime(0)
		if err != nil {
			applog.Error("scan seed failed", err)
			return ScanResult{}, err
		}
		if !found {
			e.rescheduleLocked()
			return ScanResult{}, nil
		}
		cursor = first
	}

	var res ScanResult
	for cursor != 0 && cursor <= threshold {
		if res.Scanned >= e.opts.ScanCap {
			applog.Warn("forward scan hit iteration cap",
				"cap", e.opts.ScanCap, "cursor", cursor)
			break
		}
		res.Scanned++

		alerts, err := e.gw.AlertsAt(cursor)
		if err != nil {
			applog.Error("scan read failed", err, "at", cursor)
			e.persistScanCursor(cursor)
			return res, err
		}
		for i := range alerts {
			ok, err := e.acceptOne(&alerts[i], model.PollObserved)
			if err != nil {
				applog.Error("scan alert skipped", err, "event", alerts[i].Key.EventID)
				continue
			}
			if ok {
				res.FiredAny = true
			}
		}

		if err := e.store.SetCursor(store.CursorPrevFireScan, cursor); err != nil {
			applog.Error("scan cursor update failed", err)
		}

		next, found, err := e.gw.NextAlarmTime(cursor + 1)
		if err != nil {
			applog.Error("scan advance failed", err, "after", cursor)
			e.persistScanCursor(0)
			return res, err
		}
		if !found {
			cursor = 0
			break
		}
		cursor = next
	}

	// Caught up. One more probe discovers alerts beyond the threshold.
	future, found, err := e.gw.NextAlarmTime(threshold)
	if err != nil {
		applog.Error("scan future probe failed", err)
		e.persistScanCursor(cursor)
		return res, err
	}
	next := cursor
	if found && (next == 0 || future < next) {
		next = future
	}
	e.persistScanCursor(next)

	if res.FiredAny {
		e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	}
	e.rescheduleLocked()
	res.NextWake = next
	return res, nil
}

func (e *Engine) persistScanCursor(v model.UnixMillis) {
	if err := e.store.SetCursor(store.CursorNextFireScan, v); err != nil {
		applog.Error("scan cursor persist failed", err, "value", v)
	}
}

// acceptOne funnels one alert record through the ledger. Returns true when
// the alert was newly accepted. A panic while processing a single record
// is contained here so one malformed record cannot abort the batch.
func (e *Engine) acceptOne(rec *model.AlertRecord, origin model.Origin) (accepted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			accepted = false
			err = errPanic(r)
		}
	}()

	handled, err := e.store.IsHandled(rec.Key)
	if err != nil {
		return false, err
	}
	if handled {
		return false, nil
	}

	if err := e.store.UpsertLedger(model.LedgerEntry{
		Key:         rec.Key,
		CreatedByUs: origin == model.PollObserved,
		AllDay:      rec.AllDay,
	}); err != nil {
		return false, err
	}
	if err := e.store.UpsertActive(rec.ToActive(origin)); err != nil {
		return false, err
	}
	if err := e.store.MarkHandled(rec.Key); err != nil {
		return false, err
	}
	if err := e.gw.DismissAtSource(rec.Key.EventID, rec.Key.AlertTime); err != nil {
		// Worst case the source re-delivers and the ledger drops it.
		applog.Warn("source acknowledge failed",
			"event", rec.Key.EventID, "alert_time", rec.Key.AlertTime, "err", err.Error())
	}

	applog.Info("alert accepted",
		"event", rec.Key.EventID, "at", rec.Key.AlertTime, "origin", origin.String())
	return true, nil
}

// OnWake is the timer-fire entry point: it releases expired snoozes, runs
// a forward scan, and re-arms the next wake.
func (e *Engine) OnWake() (ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	release := e.wake.Acquire()
	defer release()

	now := clock.NowMillis(e.clk)
	if e.lastPromise != 0 {
		late := now - e.lastPromise
		if late > model.UnixMillis(e.opts.DriftTolerance.Milliseconds()) {
			applog.Warn("wake arrived late",
				"promised", e.lastPromise, "actual", now, "late_ms", late)
		}
	}

	if n, err := e.store.WakeExpiredSnoozes(now); err != nil {
		applog.Error("snooze wake failed", err)
	} else if n > 0 {
		applog.Debug("snoozes expired", "count", n)
	}

	res, err := e.scanForwardLocked()
	// Expired snoozes need a refresh even when the scan found nothing new.
	e.refreshLocked(notify.RefreshOptions{QuietActive: e.quietActive()})
	e.rescheduleLocked()
	return res, err
}

// Startup restores notification state after a process restart: lost
// notifications are re-posted quietly and the wake timer is re-armed from
// persisted state.
func (e *Engine) Startup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	release := e.wake.Acquire()
	defer release()

	now := clock.NowMillis(e.clk)
	if _, err := e.store.WakeExpiredSnoozes(now); err != nil {
		return err
	}
	e.refreshLocked(notify.RefreshOptions{ForcedRepost: true})
	e.rescheduleLocked()
	return nil
}

// GC prunes ledger entries whose alert time fell out of the retention
// window. Returns how many rows were removed.
func (e *Engine) GC(retention time.Duration) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := clock.NowMillis(e.clk) - model.UnixMillis(retention.Milliseconds())
	n, err := e.store.PruneLedgerBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		applog.Info("ledger pruned", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

// refreshLocked renders the visible set and persists the resulting display
// transitions. Callers must hold e.mu.
func (e *Engine) refreshLocked(opts notify.RefreshOptions) {
	if e.pres == nil {
		return
	}
	visible, err := e.store.ListVisible()
	if err != nil {
		applog.Error("visible list failed", err)
		return
	}
	for _, tr := range e.pres.Refresh(visible, opts) {
		if err := e.store.SetDisplay(tr.Key, tr.Display, tr.VisibleAt); err != nil {
			applog.Error("display update failed", err, "event", tr.Key.EventID)
		}
	}
}

// rescheduleLocked recomputes the single next wake from the full active
// set and the persisted scan cursor. Callers must hold e.mu.
func (e *Engine) rescheduleLocked() {
	if e.planner == nil {
		return
	}
	alerts, err := e.store.ListActive()
	if err != nil {
		applog.Error("active list failed", err)
		return
	}
	plan := e.planner.Recompute(alerts, e.store.GetCursor(store.CursorNextFireScan))
	e.lastPromise = plan.WakeAt
}

func (e *Engine) quietActive() bool {
	return e.opts.Quiet.SilentUntil(e.clk.Now()) > 0
}

// errPanic wraps a recovered panic so per-item isolation can report it as
// an ordinary error.
func errPanic(r any) error {
	return fmt.Errorf("alert processing panicked: %v", r)
}
