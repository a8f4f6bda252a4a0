package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func (a *app) cmdGC(args []string) int {
	flags := flag.NewFlagSet("gc", flag.ContinueOnError)
	days := flags.Int("retention-days", 0, "override configured retention window")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	retention := a.cfg.Retention()
	if *days > 0 {
		retention = time.Duration(*days) * 24 * time.Hour
	}

	n, err := a.eng.GC(retention)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: gc: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"pruned": n, "retention": retention.String()})
		return 0
	}
	fmt.Printf("pruned %d ledger entr%s older than %s\n",
		n, plural(n, "y", "ies"), retention)
	return 0
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
