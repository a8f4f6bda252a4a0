package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdScan(args []string) int {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	res, err := a.eng.ScanForward()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: scan: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]any{
			"scanned":   res.Scanned,
			"fired_any": res.FiredAny,
			"next_wake": res.NextWake,
		})
		return 0
	}
	if res.NextWake != 0 {
		fmt.Printf("scanned %d alert times, fired=%v, next wake %s\n",
			res.Scanned, res.FiredAny, formatMillis(res.NextWake))
	} else {
		fmt.Printf("scanned %d alert times, fired=%v, no future alerts known\n",
			res.Scanned, res.FiredAny)
	}
	return 0
}
