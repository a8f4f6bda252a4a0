package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"remindd/pkg/store"
)

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	visible, err := a.store.ListVisible()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: status: %v\n", err)
		return 1
	}

	quiet := a.cfg.Quiet()
	silentUntil := quiet.SilentUntil(a.clk.Now())

	cursors := map[string]int64{
		store.CursorNextFireScan:     int64(a.store.GetCursor(store.CursorNextFireScan)),
		store.CursorPrevFireScan:     int64(a.store.GetCursor(store.CursorPrevFireScan)),
		store.CursorNextFireProvider: int64(a.store.GetCursor(store.CursorNextFireProvider)),
		store.CursorPrevFireProvider: int64(a.store.GetCursor(store.CursorPrevFireProvider)),
	}

	if *jsonOut {
		printJSON(map[string]any{
			"active":       a.store.ActiveCount(),
			"visible":      len(visible),
			"ledger":       a.store.LedgerCount(),
			"cursors":      cursors,
			"quiet_active": silentUntil != 0,
			"silent_until": silentUntil,
			"sources":      a.cfg.Sources,
		})
		return 0
	}

	bold := color.New(color.Bold)
	fmt.Printf("%s %d active, %d visible, %d ledger entries\n",
		bold.Sprint("alerts:"), a.store.ActiveCount(), len(visible), a.store.LedgerCount())
	fmt.Println(bold.Sprint("cursors:"))
	for _, name := range []string{
		store.CursorNextFireScan, store.CursorPrevFireScan,
		store.CursorNextFireProvider, store.CursorPrevFireProvider,
	} {
		fmt.Printf("  %-20s %s\n", name, formatMillis(a.store.GetCursor(name)))
	}
	if silentUntil != 0 {
		fmt.Printf("%s active until %s\n", bold.Sprint("quiet window:"), formatMillis(silentUntil))
	} else if quiet.Enabled {
		fmt.Println("quiet window: configured, not active")
	}
	fmt.Printf("%s %d configured\n", bold.Sprint("sources:"), len(a.cfg.Sources))
	return 0
}
