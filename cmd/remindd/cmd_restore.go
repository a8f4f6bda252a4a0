package main

import (
	"flag"
	"fmt"
	"os"

	"remindd/pkg/model"
)

// cmdRestore re-inserts a dismissed event's alert from the calendar's
// current data (undo). The alert comes back as fully manual.
func (a *app) cmdRestore(args []string) int {
	flags := flag.NewFlagSet("restore", flag.ContinueOnError)
	event := flags.Int64("event", 0, "event ID")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *event == 0 {
		fmt.Fprintln(os.Stderr, "remindd: restore: --event is required")
		return 1
	}

	ev, err := a.gw.Event(*event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: restore: %v\n", err)
		return 1
	}
	if ev == nil {
		fmt.Fprintf(os.Stderr, "remindd: restore: event %d not found in any source\n", *event)
		return 2
	}

	alertTime := ev.NextAlarm
	if alertTime == 0 {
		// No upcoming alarm; restore against the event start itself.
		alertTime = ev.Start
	}
	alert := model.ActiveAlert{
		Key: model.AlertKey{
			EventID:       ev.EventID,
			AlertTime:     alertTime,
			InstanceStart: ev.Start,
		},
		CalendarID: ev.CalendarID,
		Title:      ev.Title,
		Location:   ev.Location,
		Start:      ev.Start,
		End:        ev.End,
		Color:      ev.Color,
		AllDay:     ev.AllDay,
		Repeating:  ev.Repeating,
	}
	if err := a.eng.Restore(alert); err != nil {
		fmt.Fprintf(os.Stderr, "remindd: restore: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(alert)
		return 0
	}
	fmt.Printf("event %d restored (alert at %s)\n", *event, formatMillis(alert.Key.AlertTime))
	return 0
}

func (a *app) cmdMute(args []string) int {
	flags := flag.NewFlagSet("mute", flag.ContinueOnError)
	event := flags.Int64("event", 0, "event ID")
	at := flags.Int64("at", 0, "alert time (ms), disambiguates multiple alerts")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *event == 0 {
		fmt.Fprintln(os.Stderr, "remindd: mute: --event is required")
		return 1
	}

	key, ok := a.findKey(*event, *at)
	if !ok {
		fmt.Fprintf(os.Stderr, "remindd: no active alert for event %d\n", *event)
		return 2
	}

	muted, err := a.eng.MuteToggle(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "remindd: mute: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]any{"key": key, "muted": muted})
		return 0
	}
	if muted {
		fmt.Printf("event %d muted\n", *event)
	} else {
		fmt.Printf("event %d unmuted\n", *event)
	}
	return 0
}
