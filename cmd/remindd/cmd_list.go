package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"remindd/pkg/model"
)

func (a *app) cmdList(args []string) int {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	visibleOnly := flags.Bool("visible", false, "only alerts currently due for display")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var alerts []model.ActiveAlert
	var err error
	if *visibleOnly {
		alerts, err = a.store.ListVisible()
	} else {
		alerts, err = a.store.ListActive()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: list: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(alerts)
		return 0
	}
	if len(alerts) == 0 {
		fmt.Println("no active alerts")
		return 0
	}

	bold := color.New(color.Bold)
	snoozed := color.New(color.FgYellow)
	muted := color.New(color.Faint)

	tbl := uitable.New()
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("EVENT"), bold.Sprint("TITLE"), bold.Sprint("ALERT"),
		bold.Sprint("START"), bold.Sprint("STATE"), bold.Sprint("ORIGIN"))
	for _, al := range alerts {
		state := al.Display.String()
		if al.Snoozed() {
			state = snoozed.Sprintf("snoozed until %s", formatMillis(al.SnoozedUntil))
		}
		title := al.Title
		if al.Muted {
			title = muted.Sprint(title + " (muted)")
		}
		tbl.AddRow(al.Key.EventID, title, formatMillis(al.Key.AlertTime),
			formatMillis(al.Start), state, al.Origin.String())
	}
	fmt.Println(tbl)
	return 0
}
