// Package sched maintains the single outstanding wake timer.
//
// The engine never sleeps on its own; it asks the planner for the earliest
// instant it must wake (the next unseen calendar alert, the next snooze
// expiry, or the next periodic reminder) and programs exactly one timer for
// it. Re-planning is idempotent: programming the same instant twice never
// creates duplicate timers.
package sched

import (
	"sync"
	"time"

	"remindd/pkg/applog"
	"remindd/pkg/clock"
	"remindd/pkg/model"
)

// AlarmTimer is the OS wake-timer contract. Schedule replaces any
// previously programmed wake; Cancel clears it.
type AlarmTimer interface {
	Schedule(at model.UnixMillis, exact bool)
	Cancel()
}

// WakeClass identifies why the planner chose a wake instant.
type WakeClass string

const (
	WakeNone     WakeClass = "none"
	WakeSnooze   WakeClass = "snooze"
	WakeScan     WakeClass = "scan"
	WakeReminder WakeClass = "reminder"
)

// Plan is the outcome of one planning pass.
type Plan struct {
	// WakeAt is the programmed wake instant, 0 if the timer was canceled.
	WakeAt model.UnixMillis `json:"wake_at"`
	Class  WakeClass        `json:"class"`
	// QuietDeferred is true when a reminder-class wake was pushed past an
	// active quiet window.
	QuietDeferred bool `json:"quiet_deferred,omitempty"`
}

// Options tunes the planner.
type Options struct {
	// Guard is the small positive offset added before programming a
	// normal-class alarm, so the platform's own alert delivery wins the
	// race when both would fire at the same instant.
	Guard time.Duration

	// AggressiveGuard is subtracted instead when Aggressive is set; that
	// mode must win the race (debug/diagnostic use).
	AggressiveGuard time.Duration
	Aggressive      bool

	// Exact requests the "exact, allowed while idle" alarm class.
	Exact bool

	// PastClamp is how far forward an already-past candidate is pushed
	// instead of scheduling an immediate tight loop.
	PastClamp time.Duration

	// ReminderInterval enables periodic re-reminders of outstanding
	// alerts; 0 disables them.
	ReminderInterval time.Duration

	Quiet QuietConfig
}

func (o *Options) normalize() {
	if o.Guard <= 0 {
		o.Guard = 2 * time.Second
	}
	if o.AggressiveGuard <= 0 {
		o.AggressiveGuard = time.Second
	}
	if o.PastClamp <= 0 {
		o.PastClamp = 30 * time.Second
	}
}

// Planner computes and programs the next wake instant.
type Planner struct {
	timer AlarmTimer
	clk   clock.Clock
	opts  Options

	mu          sync.Mutex
	lastPlanned model.UnixMillis
}

// NewPlanner builds a planner driving the given timer.
func NewPlanner(timer AlarmTimer, clk clock.Clock, opts Options) *Planner {
	opts.normalize()
	return &Planner{timer: timer, clk: clk, opts: opts}
}

// Recompute picks the earliest needed wake instant and re-programs the
// timer. alerts is the full active set; engineNext is the reconciliation
// engine's next known alert time (0 = none). Insertion order of alerts is
// irrelevant; only the minimum matters.
func (p *Planner) Recompute(alerts []model.ActiveAlert, engineNext model.UnixMillis) Plan {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := clock.NowMillis(p.clk)

	candidate := model.UnixMillis(0)
	class := WakeNone

	// Earliest nonzero snooze expiry among non-muted alerts.
	outstanding := false
	for i := range alerts {
		a := &alerts[i]
		if a.Muted {
			continue
		}
		if !a.Snoozed() {
			outstanding = true
			continue
		}
		if candidate == 0 || a.SnoozedUntil < candidate {
			candidate = a.SnoozedUntil
			class = WakeSnooze
		}
	}

	if engineNext != 0 && (candidate == 0 || engineNext < candidate) {
		candidate = engineNext
		class = WakeScan
	}

	if p.opts.ReminderInterval > 0 && outstanding {
		reminder := now + model.UnixMillis(p.opts.ReminderInterval.Milliseconds())
		if candidate == 0 || reminder < candidate {
			candidate = reminder
			class = WakeReminder
		}
	}

	if candidate == 0 {
		p.timer.Cancel()
		p.lastPlanned = 0
		return Plan{Class: WakeNone}
	}

	plan := Plan{WakeAt: candidate, Class: class}

	// Quiet windows suppress reminder-class wakes only; alert and snooze
	// wakes still fire (the presenter posts them quietly instead). The
	// window is checked at the candidate instant, not at planning time: a
	// reminder aimed into a window that has not started yet must still
	// land past its end.
	if class == WakeReminder {
		at := candidate.Time().In(p.clk.Now().Location())
		if silentUntil := p.opts.Quiet.SilentUntil(at); silentUntil > 0 {
			candidate = silentUntil + model.UnixMillis(p.opts.Guard.Milliseconds())
			plan.WakeAt = candidate
			plan.QuietDeferred = true
		}
	}

	// Clock jumps and missed wakes can leave the candidate in the past;
	// clamp forward rather than spinning on an immediate fire.
	if candidate <= now {
		candidate = now + model.UnixMillis(p.opts.PastClamp.Milliseconds())
		applog.Warn("wake candidate in the past, clamped",
			"candidate", plan.WakeAt, "clamped_to", candidate)
		plan.WakeAt = candidate
	}

	at := candidate
	if p.opts.Aggressive {
		at -= model.UnixMillis(p.opts.AggressiveGuard.Milliseconds())
	} else {
		at += model.UnixMillis(p.opts.Guard.Milliseconds())
	}

	if at == p.lastPlanned {
		return plan
	}
	p.timer.Schedule(at, p.opts.Exact)
	p.lastPlanned = at
	return plan
}

// Cancel clears any programmed wake.
func (p *Planner) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timer.Cancel()
	p.lastPlanned = 0
}
