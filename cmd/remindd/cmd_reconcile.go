package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdReconcile(args []string) int {
	flags := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	changed, err := a.eng.ReconcileActive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: reconcile: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]any{"changed": changed})
		return 0
	}
	if changed {
		fmt.Println("active alerts updated from calendar data")
	} else {
		fmt.Println("no drift detected")
	}
	return 0
}

func (a *app) cmdPush(args []string) int {
	flags := flag.NewFlagSet("push", flag.ContinueOnError)
	at := flags.Int64("at", 0, "alert time (ms since epoch)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *at == 0 {
		fmt.Fprintln(os.Stderr, "remindd: push: --at is required")
		return 1
	}

	n, err := a.eng.HandlePush(millis(*at))
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: push: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"accepted": n})
		return 0
	}
	fmt.Printf("accepted %d alert(s) at %s\n", n, formatMillis(millis(*at)))
	return 0
}
