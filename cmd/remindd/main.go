// Command remindd tracks calendar alerts from ICS sources and keeps
// reminding until the user acts.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("remindd", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	// Daemon
	case "run":
		os.Exit(a.cmdRun(os.Args[2:]))

	// One-shot cycles
	case "scan":
		os.Exit(a.cmdScan(os.Args[2:]))
	case "reconcile":
		os.Exit(a.cmdReconcile(os.Args[2:]))
	case "push":
		os.Exit(a.cmdPush(os.Args[2:]))

	// Inspection
	case "list", "ls":
		os.Exit(a.cmdList(os.Args[2:]))
	case "status":
		os.Exit(a.cmdStatus(os.Args[2:]))

	// Alert actions
	case "snooze":
		os.Exit(a.cmdSnooze(os.Args[2:]))
	case "snooze-all":
		os.Exit(a.cmdSnoozeAll(os.Args[2:]))
	case "dismiss":
		os.Exit(a.cmdDismiss(os.Args[2:]))
	case "dismiss-all":
		os.Exit(a.cmdDismissAll(os.Args[2:]))
	case "restore":
		os.Exit(a.cmdRestore(os.Args[2:]))
	case "mute":
		os.Exit(a.cmdMute(os.Args[2:]))
	case "move":
		os.Exit(a.cmdMove(os.Args[2:]))

	// Maintenance
	case "gc":
		os.Exit(a.cmdGC(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "remindd: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'remindd --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`remindd — calendar alert detection and reminder scheduling

Watches ICS calendar files, detects due alerts through a push path and a
polling fallback, and keeps reminding until alerts are snoozed, muted, or
dismissed. State lives in a local SQLite database.

Usage:
  remindd <command> [flags]

Daemon:
  run                       Watch sources, fire alerts, re-arm wake timer

One-shot cycles:
  scan                      Run the polling fallback once
  reconcile                 Compare outstanding alerts against live data
  push --at MS              Deliver a push callback for one alert time

Inspection:
  list [--visible]          Show active alerts
  status                    Show counts, cursors, quiet window

Alert actions:
  snooze --event N [--for D]     Snooze one alert (D like 10m; -5m means
                                 5 minutes before the event starts)
  snooze-all [--for D] [--forced]  Snooze everything, staggered wakes
  dismiss --event N         Dismiss one alert
  dismiss-all               Dismiss everything
  restore --event N         Re-insert a dismissed event's alert (undo)
  mute --event N            Toggle an alert's sound off/on
  move --event N --start MS | --by D   Reschedule a non-repeating event;
                                 outstanding alerts follow the new window
  gc                        Prune old ledger entries

Aliases:
  ls = list

Environment:
  REMINDD_CONFIG    YAML config path (default: none, built-in defaults)
  REMINDD_DB        SQLite database path (overrides config db_path)

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  not found (no matching active alert)
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "remindd: "+format+"\n", args...)
	os.Exit(1)
}
