// expand.go expands parsed events into concrete occurrences within a time
// window: single events, RRULE recurrence, EXDATE exceptions and
// RECURRENCE-ID overrides, with all-day handling and a per-event cap so a
// misbehaving feed cannot produce unbounded work.
package gateway

import (
	"time"

	"github.com/teambition/rrule-go"

	"remindd/pkg/applog"
)

const defaultMaxOccurrencesPerEvent = 1000

// occurrence is one concrete instance of an event inside the window.
type occurrence struct {
	ev    parsedEvent
	start time.Time
	end   time.Time
}

// expandOccurrences expands events into occurrences within [from, to].
// Overrides (RECURRENCE-ID) replace the base instance they target.
func expandOccurrences(events []parsedEvent, from, to time.Time, maxPerEvent int) []occurrence {
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]parsedEvent)
	overridesByUID := make(map[string][]parsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	var out []occurrence
	for uid, baseEvents := range baseByUID {
		ov := overridesByUID[uid]
		for _, ev := range baseEvents {
			out = append(out, expandEvent(ev, ov, from, to, maxPerEvent)...)
		}
	}
	return out
}

func expandEvent(ev parsedEvent, overrides []parsedEvent, from, to time.Time, maxPerEvent int) []occurrence {
	if ev.RawRRule == "" {
		return expandSingle(ev, overrides, from, to)
	}
	return expandRecurring(ev, overrides, from, to, maxPerEvent)
}

func expandSingle(ev parsedEvent, overrides []parsedEvent, from, to time.Time) []occurrence {
	if !rangesOverlap(ev.Start, ev.End, from, to) {
		return nil
	}
	start, end := ev.Start, ev.End
	if o, ok := overrideForStart(overrides, start); ok {
		start, end, ev = o.Start, o.End, o
	}
	return []occurrence{{ev: ev, start: start, end: end}}
}

func expandRecurring(ev parsedEvent, overrides []parsedEvent, from, to time.Time, maxPerEvent int) []occurrence {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		applog.Error("rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	occTimes := set.Between(from.In(ev.Start.Location()), to.In(ev.Start.Location()), true)
	if len(occTimes) > maxPerEvent {
		occTimes = occTimes[:maxPerEvent]
		applog.Warn("recurrence expansion truncated", "uid", ev.UID, "cap", maxPerEvent)
	}

	out := make([]occurrence, 0, len(occTimes))
	dur := ev.End.Sub(ev.Start)
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day: [date 00:00, next day 00:00) in the event's timezone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			occEnd = occStart.Add(dur)
		}

		start, end, base := occStart, occEnd, ev
		if o, ok := overrideForStart(overrides, occStart); ok {
			start, end, base = o.Start, o.End, o
		}
		out = append(out, occurrence{ev: base, start: start, end: end})
	}
	return out
}

// overrideForStart finds an override whose RECURRENCE-ID matches the given
// instance start with exact time equality.
func overrideForStart(overrides []parsedEvent, start time.Time) (parsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return parsedEvent{}, false
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
