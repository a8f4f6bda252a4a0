package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func (a *app) cmdSnooze(args []string) int {
	flags := flag.NewFlagSet("snooze", flag.ContinueOnError)
	event := flags.Int64("event", 0, "event ID")
	at := flags.Int64("at", 0, "alert time (ms), disambiguates multiple alerts")
	durStr := flags.String("for", "", "snooze duration (10m; -5m = before event start)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *event == 0 {
		fmt.Fprintln(os.Stderr, "remindd: snooze: --event is required")
		return 1
	}

	delay := a.cfg.SnoozeDefault.Std()
	if *durStr != "" {
		d, err := time.ParseDuration(*durStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remindd: snooze: bad duration %q\n", *durStr)
			return 1
		}
		delay = d
	}

	key, ok := a.findKey(*event, *at)
	if !ok {
		fmt.Fprintf(os.Stderr, "remindd: no active alert for event %d\n", *event)
		return 2
	}

	until, err := a.eng.SnoozeOne(key, delay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: snooze: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"key": key, "snoozed_until": until})
		return 0
	}
	fmt.Printf("event %d snoozed until %s\n", *event, formatMillis(until))
	return 0
}

func (a *app) cmdSnoozeAll(args []string) int {
	flags := flag.NewFlagSet("snooze-all", flag.ContinueOnError)
	durStr := flags.String("for", "", "snooze duration")
	forced := flags.Bool("forced", false, "also move alerts already snoozed further out")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	delay := a.cfg.SnoozeDefault.Std()
	if *durStr != "" {
		d, err := time.ParseDuration(*durStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remindd: snooze-all: bad duration %q\n", *durStr)
			return 1
		}
		delay = d
	}

	n, err := a.eng.SnoozeAll(delay, *forced)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: snooze-all: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"snoozed": n})
		return 0
	}
	fmt.Printf("snoozed %d alert(s)\n", n)
	return 0
}
