package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"remindd/pkg/model"
)

// cmdMove reschedules a non-repeating event at the source and reconciles,
// so any outstanding alert re-points at the new window.
func (a *app) cmdMove(args []string) int {
	flags := flag.NewFlagSet("move", flag.ContinueOnError)
	event := flags.Int64("event", 0, "event ID")
	start := flags.Int64("start", 0, "new start (ms since epoch)")
	end := flags.Int64("end", 0, "new end (ms), defaults to keeping the duration")
	byStr := flags.String("by", "", "shift by duration instead (1h30m)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *event == 0 {
		fmt.Fprintln(os.Stderr, "remindd: move: --event is required")
		return 1
	}
	if (*start == 0) == (*byStr == "") {
		fmt.Fprintln(os.Stderr, "remindd: move: exactly one of --start or --by is required")
		return 1
	}

	ev, err := a.gw.Event(*event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: move: %v\n", err)
		return 1
	}
	if ev == nil {
		fmt.Fprintf(os.Stderr, "remindd: move: event %d not found in any source\n", *event)
		return 2
	}

	newStart := millis(*start)
	if *byStr != "" {
		d, err := time.ParseDuration(*byStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remindd: move: bad duration %q\n", *byStr)
			return 1
		}
		newStart = ev.Start + model.UnixMillis(d.Milliseconds())
	}
	newEnd := millis(*end)
	if newEnd == 0 {
		newEnd = newStart + (ev.End - ev.Start)
	}

	moved, err := a.gw.MoveEvent(*event, newStart, newEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: move: %v\n", err)
		return 1
	}
	if !moved {
		fmt.Fprintf(os.Stderr, "remindd: move: event %d cannot be moved\n", *event)
		return 2
	}
	if _, err := a.eng.ReconcileActive(); err != nil {
		fmt.Fprintf(os.Stderr, "remindd: move: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]any{"event": *event, "start": newStart, "end": newEnd})
		return 0
	}
	fmt.Printf("event %d moved to %s\n", *event, formatMillis(newStart))
	return 0
}
