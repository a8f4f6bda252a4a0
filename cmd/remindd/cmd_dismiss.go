package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdDismiss(args []string) int {
	flags := flag.NewFlagSet("dismiss", flag.ContinueOnError)
	event := flags.Int64("event", 0, "event ID")
	at := flags.Int64("at", 0, "alert time (ms), disambiguates multiple alerts")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *event == 0 {
		fmt.Fprintln(os.Stderr, "remindd: dismiss: --event is required")
		return 1
	}

	key, ok := a.findKey(*event, *at)
	if !ok {
		fmt.Fprintf(os.Stderr, "remindd: no active alert for event %d\n", *event)
		return 2
	}

	removed, err := a.eng.Dismiss(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: dismiss: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"key": key, "removed": removed})
		return 0
	}
	fmt.Printf("event %d dismissed\n", *event)
	return 0
}

func (a *app) cmdDismissAll(args []string) int {
	flags := flag.NewFlagSet("dismiss-all", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	n, err := a.eng.DismissAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: dismiss-all: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"removed": n})
		return 0
	}
	fmt.Printf("dismissed %d alert(s)\n", n)
	return 0
}
