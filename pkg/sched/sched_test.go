package sched

import (
	"testing"
	"time"

	"remindd/pkg/clock"
	"remindd/pkg/model"
)

// mockTimer records Schedule/Cancel calls.
type mockTimer struct {
	scheduled []model.UnixMillis
	exact     []bool
	cancels   int
}

func (m *mockTimer) Schedule(at model.UnixMillis, exact bool) {
	m.scheduled = append(m.scheduled, at)
	m.exact = append(m.exact, exact)
}

func (m *mockTimer) Cancel() { m.cancels++ }

var schedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPlanner(t *testing.T, opts Options) (*Planner, *mockTimer, *clock.Fake) {
	t.Helper()
	timer := &mockTimer{}
	clk := clock.NewFake(schedNow)
	return NewPlanner(timer, clk, opts), timer, clk
}

func snoozedAlert(eventID int64, until model.UnixMillis) model.ActiveAlert {
	return model.ActiveAlert{
		Key:          model.AlertKey{EventID: eventID, AlertTime: 1, InstanceStart: 1},
		SnoozedUntil: until,
	}
}

func TestRecompute_MinOfNonzeroSnoozes(t *testing.T) {
	p, timer, _ := newTestPlanner(t, Options{Guard: time.Second})

	base := model.Millis(schedNow)
	// Insertion order must not matter.
	alerts := []model.ActiveAlert{
		snoozedAlert(3, base+9000),
		snoozedAlert(1, 0),
		snoozedAlert(2, base+5000),
	}

	plan := p.Recompute(alerts, 0)
	if plan.Class != WakeSnooze {
		t.Fatalf("class = %v, want snooze", plan.Class)
	}
	if plan.WakeAt != base+5000 {
		t.Fatalf("WakeAt = %d, want %d", plan.WakeAt, base+5000)
	}
	if len(timer.scheduled) != 1 {
		t.Fatalf("scheduled %d times, want 1", len(timer.scheduled))
	}
	// Positive guard added before programming.
	if timer.scheduled[0] != base+5000+1000 {
		t.Fatalf("programmed %d, want %d", timer.scheduled[0], base+5000+1000)
	}
}

func TestRecompute_EngineNextWins(t *testing.T) {
	p, _, _ := newTestPlanner(t, Options{})

	base := model.Millis(schedNow)
	alerts := []model.ActiveAlert{snoozedAlert(1, base+60_000)}

	plan := p.Recompute(alerts, base+10_000)
	if plan.Class != WakeScan || plan.WakeAt != base+10_000 {
		t.Fatalf("plan = %+v, want scan at %d", plan, base+10_000)
	}
}

func TestRecompute_MutedSnoozeIgnored(t *testing.T) {
	p, _, _ := newTestPlanner(t, Options{})

	base := model.Millis(schedNow)
	muted := snoozedAlert(1, base+1000)
	muted.Muted = true

	plan := p.Recompute([]model.ActiveAlert{muted, snoozedAlert(2, base+5000)}, 0)
	if plan.WakeAt != base+5000 {
		t.Fatalf("WakeAt = %d, muted snooze should not drive the wake", plan.WakeAt)
	}
}

func TestRecompute_NoCandidateCancels(t *testing.T) {
	p, timer, _ := newTestPlanner(t, Options{})

	plan := p.Recompute(nil, 0)
	if plan.Class != WakeNone || plan.WakeAt != 0 {
		t.Fatalf("plan = %+v, want none", plan)
	}
	if timer.cancels != 1 {
		t.Fatalf("cancels = %d, want 1", timer.cancels)
	}
}

func TestRecompute_ReminderForOutstandingAlerts(t *testing.T) {
	p, _, _ := newTestPlanner(t, Options{ReminderInterval: 10 * time.Minute})

	// One unsnoozed, unmuted alert outstanding: reminder applies.
	alerts := []model.ActiveAlert{snoozedAlert(1, 0)}
	plan := p.Recompute(alerts, 0)

	want := model.Millis(schedNow.Add(10 * time.Minute))
	if plan.Class != WakeReminder || plan.WakeAt != want {
		t.Fatalf("plan = %+v, want reminder at %d", plan, want)
	}
}

func TestRecompute_QuietWindowDefersReminder(t *testing.T) {
	// Quiet window 11:00-13:00; now is 12:00.
	p, timer, _ := newTestPlanner(t, Options{
		Guard:            time.Second,
		ReminderInterval: 10 * time.Minute,
		Quiet:            QuietConfig{Enabled: true, StartMinute: 11 * 60, EndMinute: 13 * 60},
	})

	plan := p.Recompute([]model.ActiveAlert{snoozedAlert(1, 0)}, 0)
	if !plan.QuietDeferred {
		t.Fatal("reminder inside quiet window must be deferred")
	}
	quietEnd := model.Millis(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC))
	if plan.WakeAt != quietEnd+1000 {
		t.Fatalf("WakeAt = %d, want quiet end + guard %d", plan.WakeAt, quietEnd+1000)
	}
	if timer.scheduled[0] <= quietEnd {
		t.Fatalf("programmed %d, inside quiet window ending %d", timer.scheduled[0], quietEnd)
	}
}

func TestRecompute_ReminderAimedIntoUpcomingQuietWindow(t *testing.T) {
	// Now 21:00 with quiet 22:00-07:00: a 2h reminder would land at 23:00,
	// inside a window that has not started yet. The candidate must clear
	// the window even though planning happens outside it.
	timer := &mockTimer{}
	clk := clock.NewFake(time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC))
	p := NewPlanner(timer, clk, Options{
		Guard:            time.Second,
		ReminderInterval: 2 * time.Hour,
		Quiet:            QuietConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60},
	})

	plan := p.Recompute([]model.ActiveAlert{snoozedAlert(1, 0)}, 0)
	if !plan.QuietDeferred {
		t.Fatal("reminder landing inside an upcoming quiet window must be deferred")
	}
	quietEnd := model.Millis(time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC))
	if plan.WakeAt != quietEnd+1000 {
		t.Fatalf("WakeAt = %d, want quiet end + guard %d", plan.WakeAt, quietEnd+1000)
	}
	if timer.scheduled[0] <= quietEnd {
		t.Fatalf("programmed %d, inside quiet window ending %d", timer.scheduled[0], quietEnd)
	}
}

func TestRecompute_ReminderPastQuietWindowEndNotDeferred(t *testing.T) {
	// Now inside the window but the reminder lands after it ends: nothing
	// to defer.
	timer := &mockTimer{}
	clk := clock.NewFake(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))
	p := NewPlanner(timer, clk, Options{
		ReminderInterval: time.Hour,
		Quiet:            QuietConfig{Enabled: true, StartMinute: 11 * 60, EndMinute: 13 * 60},
	})

	plan := p.Recompute([]model.ActiveAlert{snoozedAlert(1, 0)}, 0)
	want := model.Millis(time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC))
	if plan.QuietDeferred || plan.WakeAt != want {
		t.Fatalf("plan = %+v, want undeferred reminder at %d", plan, want)
	}
}

func TestRecompute_QuietWindowDoesNotDeferSnooze(t *testing.T) {
	p, _, _ := newTestPlanner(t, Options{
		Quiet: QuietConfig{Enabled: true, StartMinute: 11 * 60, EndMinute: 13 * 60},
	})

	base := model.Millis(schedNow)
	plan := p.Recompute([]model.ActiveAlert{snoozedAlert(1, base+5000)}, 0)
	if plan.QuietDeferred || plan.WakeAt != base+5000 {
		t.Fatalf("plan = %+v, snooze wake must not be quiet-deferred", plan)
	}
}

func TestRecompute_PastCandidateClamped(t *testing.T) {
	p, _, _ := newTestPlanner(t, Options{PastClamp: 30 * time.Second})

	base := model.Millis(schedNow)
	plan := p.Recompute(nil, base-60_000) // engine next in the past

	want := base + 30_000
	if plan.WakeAt != want {
		t.Fatalf("WakeAt = %d, want clamped %d", plan.WakeAt, want)
	}
}

func TestRecompute_IdempotentReprogram(t *testing.T) {
	p, timer, _ := newTestPlanner(t, Options{})

	base := model.Millis(schedNow)
	alerts := []model.ActiveAlert{snoozedAlert(1, base+5000)}

	p.Recompute(alerts, 0)
	p.Recompute(alerts, 0)
	p.Recompute(alerts, 0)

	if len(timer.scheduled) != 1 {
		t.Fatalf("scheduled %d times for identical candidate, want 1", len(timer.scheduled))
	}
}

func TestRecompute_AggressiveGuardSubtracts(t *testing.T) {
	p, timer, _ := newTestPlanner(t, Options{
		Aggressive:      true,
		AggressiveGuard: time.Second,
		Exact:           true,
	})

	base := model.Millis(schedNow)
	p.Recompute([]model.ActiveAlert{snoozedAlert(1, base+5000)}, 0)

	if timer.scheduled[0] != base+5000-1000 {
		t.Fatalf("programmed %d, want candidate - guard %d", timer.scheduled[0], base+5000-1000)
	}
	if !timer.exact[0] {
		t.Fatal("aggressive mode requested exact class")
	}
}

func TestCancelClearsPlan(t *testing.T) {
	p, timer, _ := newTestPlanner(t, Options{})
	base := model.Millis(schedNow)
	alerts := []model.ActiveAlert{snoozedAlert(1, base+5000)}

	p.Recompute(alerts, 0)
	p.Cancel()
	p.Recompute(alerts, 0)

	if len(timer.scheduled) != 2 {
		t.Fatalf("scheduled %d times, want re-program after Cancel", len(timer.scheduled))
	}
}

func TestQuietConfig_SilentUntil(t *testing.T) {
	tests := []struct {
		name string
		cfg  QuietConfig
		now  time.Time
		want model.UnixMillis
	}{
		{
			"disabled",
			QuietConfig{StartMinute: 0, EndMinute: 24 * 60},
			time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			0,
		},
		{
			"inside same-day window",
			QuietConfig{Enabled: true, StartMinute: 11 * 60, EndMinute: 13 * 60},
			time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			model.Millis(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)),
		},
		{
			"outside same-day window",
			QuietConfig{Enabled: true, StartMinute: 11 * 60, EndMinute: 13 * 60},
			time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
			0,
		},
		{
			"wrapping window, late evening",
			QuietConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60},
			time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC),
			model.Millis(time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC)),
		},
		{
			"wrapping window, early morning",
			QuietConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60},
			time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
			model.Millis(time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)),
		},
		{
			"wrapping window, daytime",
			QuietConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60},
			time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.SilentUntil(tt.now); got != tt.want {
				t.Fatalf("SilentUntil = %d, want %d", got, tt.want)
			}
		})
	}
}
