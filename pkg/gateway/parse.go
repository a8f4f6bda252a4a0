// parse.go turns raw ICS payloads into normalized events. It relies on the
// library's VTIMEZONE/TZID handling for time values and records RRULE,
// EXDATE and RECURRENCE-ID without expanding them; expansion happens in
// expand.go.
package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"remindd/pkg/applog"
)

// parsedEvent is the normalized representation of a VEVENT.
type parsedEvent struct {
	Source Source

	UID string

	Summary  string
	Location string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, in the event's own timezone
	IsOverride bool       // true if this VEVENT overrides a recurring instance

	// Triggers are the alarm offsets relative to the occurrence start,
	// from VALARM components. Negative means before the start. Empty means
	// the source declares no alarms and the default reminder applies.
	Triggers []time.Duration
}

// parseICS parses a single ICS payload into a list of parsedEvent. A
// malformed VEVENT is logged and skipped so one bad event cannot poison the
// whole source.
func parseICS(src Source, body []byte) ([]parsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar %q: %w", src.ID, err)
	}

	events := make([]parsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			applog.Error("ics vevent parse failed", perr, "source", src.ID)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent
	out.Source = src

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	// Detect all-day: DTSTART carries VALUE=DATE or a date-only value.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			out.AllDay = true
		}
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE (can appear multiple times, comma-separated values).
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	// RECURRENCE-ID marks an overridden instance of a recurring event.
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	// VALARM trigger offsets. Absolute (DATE-TIME) triggers are rare in
	// subscription feeds and are skipped with a log line.
	for _, alarm := range ve.Alarms() {
		trig := alarm.GetProperty("TRIGGER")
		if trig == nil || trig.Value == "" {
			continue
		}
		d, err := parseISODuration(trig.Value)
		if err != nil {
			applog.Error("ics alarm trigger skipped", err, "source", src.ID, "uid", out.UID, "trigger", trig.Value)
			continue
		}
		out.Triggers = append(out.Triggers, d)
	}

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string. Simplified helper
// for EXDATE/RECURRENCE-ID values where full parameter context is missing.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Floating date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	// Date-only (all-day), e.g. 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}

// parseISODuration parses the ISO-8601 duration form used by VALARM
// triggers, e.g. "-PT15M", "-P1DT9H", "PT0S". Weeks, days, hours, minutes
// and seconds are supported; months and years are not meaningful for alarm
// offsets and are rejected.
func parseISODuration(v string) (time.Duration, error) {
	s := strings.TrimSpace(strings.ToUpper(v))
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("duration %q: missing P designator", v)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := 0
	haveNum := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
			haveNum = true
		case r == 'T':
			inTime = true
		default:
			if !haveNum {
				return 0, fmt.Errorf("duration %q: designator %c without value", v, r)
			}
			var unit time.Duration
			switch {
			case r == 'W' && !inTime:
				unit = 7 * 24 * time.Hour
			case r == 'D' && !inTime:
				unit = 24 * time.Hour
			case r == 'H' && inTime:
				unit = time.Hour
			case r == 'M' && inTime:
				unit = time.Minute
			case r == 'S' && inTime:
				unit = time.Second
			default:
				return 0, fmt.Errorf("duration %q: unsupported designator %c", v, r)
			}
			total += time.Duration(num) * unit
			num = 0
			haveNum = false
		}
	}
	if haveNum {
		return 0, fmt.Errorf("duration %q: trailing value without designator", v)
	}
	if neg {
		total = -total
	}
	return total, nil
}
