package main

import (
	"encoding/json"
	"fmt"
	"os"

	"remindd/pkg/applog"
	"remindd/pkg/clock"
	"remindd/pkg/config"
	"remindd/pkg/engine"
	"remindd/pkg/gateway"
	"remindd/pkg/model"
	"remindd/pkg/notify"
	"remindd/pkg/sched"
	"remindd/pkg/store"
)

// app holds shared state for all CLI subcommands.
type app struct {
	cfg     config.Config
	store   *store.Store
	gw      *gateway.ICSGateway
	pres    *notify.Presenter
	timer   *sched.StdTimer
	planner *sched.Planner
	eng     *engine.Engine
	clk     clock.Clock
}

// newApp loads configuration and wires the full stack. The in-process
// timer fires the engine's wake path directly.
func newApp() (*app, error) {
	cfg, err := config.Load(envOr("REMINDD_CONFIG", ""))
	if err != nil {
		return nil, err
	}
	if db := os.Getenv("REMINDD_DB"); db != "" {
		cfg.DBPath = db
	}
	applog.SetLevel(applog.Level(cfg.LogLevel))
	appLocation = cfg.Location()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", cfg.DBPath, err)
	}

	a := &app{cfg: cfg, store: s, clk: clock.System{}}
	a.gw = gateway.NewICS(cfg.Sources, cfg.GatewayOptions(), a.clk)
	a.pres = notify.NewPresenter(notify.NewStdoutSink(os.Stdout), a.clk, cfg.MaxVisible)
	a.timer = sched.NewStdTimer(a.clk, func() {
		if _, err := a.eng.OnWake(); err != nil {
			applog.Error("wake cycle failed", err)
		}
	})
	a.planner = sched.NewPlanner(a.timer, a.clk, cfg.SchedOptions())
	a.eng = engine.New(s, a.gw, a.clk, a.pres, a.planner, nil, cfg.EngineOptions())
	return a, nil
}

// Close releases the wake timer and the database connection.
func (a *app) Close() {
	a.timer.Cancel()
	a.store.Close()
}

// findKey resolves an event ID (and optional alert time) to one active
// alert's key. With at == 0 the event's earliest active alert wins.
func (a *app) findKey(eventID, at int64) (model.AlertKey, bool) {
	alerts, err := a.store.ListActive()
	if err != nil {
		return model.AlertKey{}, false
	}
	for _, al := range alerts {
		if al.Key.EventID != eventID {
			continue
		}
		if at != 0 && al.Key.AlertTime != model.UnixMillis(at) {
			continue
		}
		return al.Key, true
	}
	return model.AlertKey{}, false
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
