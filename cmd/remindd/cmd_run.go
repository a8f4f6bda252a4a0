package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"remindd/pkg/applog"
)

// cmdRun is the daemon loop. Three triggers drive the engine: ICS file
// changes (the push-ish path via the gateway invalidation), the cron-based
// periodic poll and drift reconcile, and the engine's own wake timer.
func (a *app) cmdRun(args []string) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if err := a.eng.Startup(); err != nil {
		fmt.Fprintf(os.Stderr, "remindd: startup: %v\n", err)
		return 1
	}
	if _, err := a.eng.ScanForward(); err != nil {
		applog.Error("initial scan failed", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: watcher: %v\n", err)
		return 1
	}
	defer watcher.Close()
	for _, src := range a.cfg.Sources {
		if err := watcher.Add(src.Path); err != nil {
			applog.Warn("cannot watch source", "path", src.Path, "err", err.Error())
		}
	}

	c := cron.New()
	every := fmt.Sprintf("@every %s", a.cfg.PollInterval.Std())
	if _, err := c.AddFunc(every, func() {
		if _, err := a.eng.ScanForward(); err != nil {
			applog.Error("periodic scan failed", err)
		}
		if _, err := a.eng.ReconcileActive(); err != nil {
			applog.Error("periodic reconcile failed", err)
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "remindd: cron: %v\n", err)
		return 1
	}
	c.Start()
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	applog.Info("remindd running",
		"sources", len(a.cfg.Sources),
		"poll", a.cfg.PollInterval.Std().String(),
		"db", a.cfg.DBPath)

	for {
		select {
		case s := <-sig:
			applog.Info("signal received, shutting down", "signal", s.String())
			return 0
		case evt, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			applog.Debug("source changed", "path", evt.Name, "op", evt.Op.String())
			a.gw.Invalidate()
			if _, err := a.eng.ReconcileActive(); err != nil {
				applog.Error("change reconcile failed", err)
			}
			if _, err := a.eng.ScanForward(); err != nil {
				applog.Error("change scan failed", err)
			}
			// Editors replace files on save; re-add so the watch survives.
			if evt.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				_ = watcher.Add(evt.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			applog.Warn("watcher error", "err", err.Error())
		}
	}
}
