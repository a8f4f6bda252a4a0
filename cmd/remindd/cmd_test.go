package main

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"remindd/pkg/clock"
	"remindd/pkg/config"
	"remindd/pkg/engine"
	"remindd/pkg/gateway"
	"remindd/pkg/model"
	"remindd/pkg/notify"
	"remindd/pkg/sched"
	"remindd/pkg/store"
)

// --- envOr tests ---

func TestEnvOr_EnvSet(t *testing.T) {
	t.Setenv("TEST_REMINDD_ENV", "hello")
	if got := envOr("TEST_REMINDD_ENV", "default"); got != "hello" {
		t.Fatalf("envOr with set env: got %q, want %q", got, "hello")
	}
}

func TestEnvOr_EnvUnset(t *testing.T) {
	if got := envOr("TEST_REMINDD_UNSET_XYZ", "fallback"); got != "fallback" {
		t.Fatalf("envOr with unset env: got %q, want %q", got, "fallback")
	}
}

// --- wiring helper ---

func newTestApp(t *testing.T) *app {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := config.Default()
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("config: %v", err)
	}

	a := &app{cfg: cfg, store: s, clk: clock.System{}}
	a.gw = gateway.NewICS(nil, cfg.GatewayOptions(), a.clk)
	a.pres = notify.NewPresenter(notify.NewStdoutSink(io.Discard), a.clk, cfg.MaxVisible)
	a.timer = sched.NewStdTimer(a.clk, func() {})
	t.Cleanup(a.timer.Cancel)
	a.planner = sched.NewPlanner(a.timer, a.clk, cfg.SchedOptions())
	a.eng = engine.New(s, a.gw, a.clk, a.pres, a.planner, nil, cfg.EngineOptions())
	return a
}

func insertAlert(t *testing.T, a *app, eventID int64, alertTime model.UnixMillis) model.AlertKey {
	t.Helper()
	key := model.AlertKey{EventID: eventID, AlertTime: alertTime, InstanceStart: alertTime + 600_000}
	err := a.store.UpsertActive(model.ActiveAlert{
		Key: key, Title: "event", Start: key.InstanceStart,
	})
	if err != nil {
		t.Fatalf("UpsertActive: %v", err)
	}
	return key
}

// --- findKey tests ---

func TestFindKey_ByEvent(t *testing.T) {
	a := newTestApp(t)
	key := insertAlert(t, a, 7, 1_700_000_000_000)

	got, ok := a.findKey(7, 0)
	if !ok || got != key {
		t.Fatalf("findKey(7, 0): got %+v, ok=%v", got, ok)
	}
}

func TestFindKey_Disambiguates(t *testing.T) {
	a := newTestApp(t)
	insertAlert(t, a, 7, 1_700_000_000_000)
	later := insertAlert(t, a, 7, 1_700_000_060_000)

	got, ok := a.findKey(7, int64(later.AlertTime))
	if !ok || got != later {
		t.Fatalf("findKey with --at: got %+v, ok=%v", got, ok)
	}
}

func TestFindKey_NotFound(t *testing.T) {
	a := newTestApp(t)
	if _, ok := a.findKey(99, 0); ok {
		t.Fatal("findKey found a nonexistent alert")
	}
}

// --- command smoke tests ---

func TestCmdList_Empty(t *testing.T) {
	a := newTestApp(t)
	out := captureStdout(t, func() {
		if rc := a.cmdList(nil); rc != 0 {
			t.Errorf("cmdList rc = %d", rc)
		}
	})
	if !strings.Contains(out, "no active alerts") {
		t.Fatalf("cmdList empty: got %q", out)
	}
}

func TestCmdList_ShowsAlert(t *testing.T) {
	a := newTestApp(t)
	insertAlert(t, a, 7, 1_700_000_000_000)
	out := captureStdout(t, func() {
		if rc := a.cmdList(nil); rc != 0 {
			t.Errorf("cmdList rc = %d", rc)
		}
	})
	if !strings.Contains(out, "event") || !strings.Contains(out, "7") {
		t.Fatalf("cmdList: alert missing from %q", out)
	}
}

func TestCmdStatus_JSON(t *testing.T) {
	a := newTestApp(t)
	insertAlert(t, a, 7, 1_700_000_000_000)
	out := captureStdout(t, func() {
		if rc := a.cmdStatus([]string{"--json"}); rc != 0 {
			t.Errorf("cmdStatus rc = %d", rc)
		}
	})
	for _, want := range []string{`"active": 1`, `"cursors"`, `"quiet_active"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("cmdStatus json missing %s in %q", want, out)
		}
	}
}

func TestCmdScan_NoSources(t *testing.T) {
	a := newTestApp(t)
	out := captureStdout(t, func() {
		if rc := a.cmdScan(nil); rc != 0 {
			t.Errorf("cmdScan rc = %d", rc)
		}
	})
	if !strings.Contains(out, "scanned 0") {
		t.Fatalf("cmdScan: got %q", out)
	}
}

func TestCmdDismiss_NotFoundExitCode(t *testing.T) {
	a := newTestApp(t)
	if rc := a.cmdDismiss([]string{"--event", "42"}); rc != 2 {
		t.Fatalf("dismiss of missing alert: rc = %d, want 2", rc)
	}
}

func TestCmdSnooze_RoundTrip(t *testing.T) {
	a := newTestApp(t)
	insertAlert(t, a, 7, 1_700_000_000_000)

	out := captureStdout(t, func() {
		if rc := a.cmdSnooze([]string{"--event", "7", "--for", "10m"}); rc != 0 {
			t.Errorf("cmdSnooze rc = %d", rc)
		}
	})
	if !strings.Contains(out, "snoozed until") {
		t.Fatalf("cmdSnooze: got %q", out)
	}

	alerts, err := a.store.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 || alerts[0].SnoozedUntil == 0 {
		t.Fatalf("alert not snoozed: %+v", alerts)
	}
}

// newTestAppWithSource rewires the app over one real ICS source.
func newTestAppWithSource(t *testing.T, body string) *app {
	t.Helper()
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "cal.ics")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	a.gw = gateway.NewICS([]gateway.Source{{ID: "cal.ics", Name: "cal", Path: path}},
		a.cfg.GatewayOptions(), a.clk)
	a.eng = engine.New(a.store, a.gw, a.clk, a.pres, a.planner, nil, a.cfg.EngineOptions())
	return a
}

func TestCmdMove_RepointsAlert(t *testing.T) {
	// One non-repeating event two days out, alert 15 minutes before start.
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	ics := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//remindd test//EN\n" +
		"BEGIN:VEVENT\nUID:standup@test\n" +
		"DTSTART:" + start.Format("20060102T150405Z") + "\n" +
		"DTEND:" + start.Add(time.Hour).Format("20060102T150405Z") + "\n" +
		"SUMMARY:Standup\n" +
		"BEGIN:VALARM\nACTION:DISPLAY\nTRIGGER:-PT15M\nEND:VALARM\n" +
		"END:VEVENT\nEND:VCALENDAR\n"
	a := newTestAppWithSource(t, ics)

	alertAt := model.Millis(start.Add(-15 * time.Minute))
	captureStdout(t, func() {
		if rc := a.cmdPush([]string{"--at", strconv.FormatInt(int64(alertAt), 10)}); rc != 0 {
			t.Errorf("cmdPush rc = %d", rc)
		}
	})
	alerts, err := a.store.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("active = %d, want 1", len(alerts))
	}
	eventID := alerts[0].Key.EventID

	out := captureStdout(t, func() {
		rc := a.cmdMove([]string{"--event", strconv.FormatInt(eventID, 10), "--by", "2h"})
		if rc != 0 {
			t.Errorf("cmdMove rc = %d", rc)
		}
	})
	if !strings.Contains(out, "moved") {
		t.Fatalf("cmdMove: got %q", out)
	}

	// The reconcile pass triggered by move re-points the outstanding alert.
	alerts, err = a.store.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("active after move = %d, want 1", len(alerts))
	}
	want := alertAt + model.UnixMillis((2 * time.Hour).Milliseconds())
	if alerts[0].Key.AlertTime != want {
		t.Fatalf("alert time = %d, want shifted %d", alerts[0].Key.AlertTime, want)
	}
}

func TestCmdMove_UnknownEventExitCode(t *testing.T) {
	a := newTestApp(t)
	if rc := a.cmdMove([]string{"--event", "42", "--by", "1h"}); rc != 2 {
		t.Fatalf("move of unknown event: rc = %d, want 2", rc)
	}
}

func TestCmdMove_RequiresTarget(t *testing.T) {
	a := newTestApp(t)
	if rc := a.cmdMove([]string{"--event", "42"}); rc != 1 {
		t.Fatalf("move without --start/--by: rc = %d, want 1", rc)
	}
}

// --- plural helper ---

func TestPlural(t *testing.T) {
	if plural(1, "y", "ies") != "y" || plural(2, "y", "ies") != "ies" {
		t.Fatal("plural")
	}
}

// captureStdout redirects os.Stdout for the duration of fn.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	w.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
