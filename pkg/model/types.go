// Package model defines the core domain types for remindd.
//
// Remindd tracks calendar alerts through a small state machine built on
// two ideas:
//
//   - An alert ledger: every (event, alert time, occurrence) triple that has
//     ever been acted upon is recorded durably. Both detection paths — the
//     push callback and the polling fallback — funnel through the ledger, so
//     double delivery is harmless and no alert fires twice.
//
//   - Active alerts: the locally-owned set of alerts currently eligible for
//     display, snooze, or dismissal. This set, not the calendar subsystem,
//     is the source of truth for what the user should see right now.
package model

import "time"

// UnixMillis is a millisecond-precision Unix epoch timestamp. Zero means
// "unset" throughout the data model (e.g. SnoozedUntil == 0 means the alert
// is currently due for display).
type UnixMillis int64

// Time converts the timestamp to a time.Time in UTC.
func (m UnixMillis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// Millis converts a time.Time to a UnixMillis timestamp.
func Millis(t time.Time) UnixMillis {
	return UnixMillis(t.UnixMilli())
}

// AlertKey uniquely identifies one occurrence of one event's alert.
// Immutable once created. InstanceStart distinguishes occurrences of a
// recurring event that share an event ID and alert offset.
type AlertKey struct {
	EventID       int64      `json:"event_id"`
	AlertTime     UnixMillis `json:"alert_time"`
	InstanceStart UnixMillis `json:"instance_start"`
}

// LedgerEntry records that an alert has been observed (and possibly
// handled). Entries are created on first observation and never mutated
// except to flip WasHandled; once WasHandled is true the engine must never
// re-fire the same AlertKey.
type LedgerEntry struct {
	Key AlertKey `json:"key"`

	// WasHandled is true once the alert has been accepted and surfaced.
	WasHandled bool `json:"was_handled"`

	// CreatedByUs is true when the entry was synthesized by the polling
	// fallback rather than observed from a push callback.
	CreatedByUs bool `json:"created_by_us"`

	AllDay bool `json:"all_day"`
}

// DisplayStatus is the presenter-visible state of an active alert.
type DisplayStatus int

const (
	// Hidden: not currently shown (fresh, snoozed, or pending re-post).
	Hidden DisplayStatus = iota
	// DisplayedNormal: shown as its own notification.
	DisplayedNormal
	// DisplayedCollapsed: folded into the aggregate summary notification.
	DisplayedCollapsed
)

// String returns the display status name.
func (d DisplayStatus) String() string {
	switch d {
	case Hidden:
		return "hidden"
	case DisplayedNormal:
		return "normal"
	case DisplayedCollapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

// Origin records which detection path produced an active alert.
type Origin int

const (
	// PushObserved: delivered by the calendar subsystem's push callback.
	PushObserved Origin = iota
	// PollObserved: discovered by the polling fallback scan.
	PollObserved
	// FullyManual: created locally (e.g. restore/undo), never validated
	// against the ledger.
	FullyManual
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case PushObserved:
		return "push"
	case PollObserved:
		return "poll"
	case FullyManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ActiveAlert is a locally tracked alert currently eligible for display,
// snooze, or dismissal. Keyed by AlertKey in the store.
type ActiveAlert struct {
	Key AlertKey `json:"key"`

	CalendarID int64  `json:"calendar_id"`
	Title      string `json:"title"`
	Location   string `json:"location,omitempty"`

	Start UnixMillis `json:"start"`
	End   UnixMillis `json:"end"`
	Color int32      `json:"color,omitempty"`

	AllDay    bool `json:"all_day"`
	Repeating bool `json:"repeating"`

	// SnoozedUntil == 0 means "currently due for display". A nonzero value
	// is always strictly in the future at the moment it is set.
	SnoozedUntil UnixMillis `json:"snoozed_until"`

	Display        DisplayStatus `json:"display"`
	LastVisibility UnixMillis    `json:"last_visibility"`
	Origin         Origin        `json:"origin"`
	Muted          bool          `json:"muted"`
}

// Snoozed reports whether the alert is currently parked on a snooze timer.
func (a *ActiveAlert) Snoozed() bool { return a.SnoozedUntil != 0 }

// AlertRecord is one alert row as reported by the calendar gateway.
type AlertRecord struct {
	Key        AlertKey   `json:"key"`
	CalendarID int64      `json:"calendar_id"`
	Title      string     `json:"title"`
	Location   string     `json:"location,omitempty"`
	Start      UnixMillis `json:"start"`
	End        UnixMillis `json:"end"`
	Color      int32      `json:"color,omitempty"`
	AllDay     bool       `json:"all_day"`
	Repeating  bool       `json:"repeating"`
}

// EventRecord is the bare event as reported by the calendar gateway,
// independent of any particular occurrence.
type EventRecord struct {
	EventID    int64      `json:"event_id"`
	CalendarID int64      `json:"calendar_id"`
	Title      string     `json:"title"`
	Location   string     `json:"location,omitempty"`
	Start      UnixMillis `json:"start"`
	End        UnixMillis `json:"end"`
	Color      int32      `json:"color,omitempty"`
	AllDay     bool       `json:"all_day"`
	Repeating  bool       `json:"repeating"`

	// NextAlarm is the event's next computed alarm time, or 0 if none.
	NextAlarm UnixMillis `json:"next_alarm"`
}

// ToActive builds an ActiveAlert from a gateway alert record. The alert
// starts Hidden; the presenter decides when and how it becomes visible.
func (r *AlertRecord) ToActive(origin Origin) ActiveAlert {
	return ActiveAlert{
		Key:        r.Key,
		CalendarID: r.CalendarID,
		Title:      r.Title,
		Location:   r.Location,
		Start:      r.Start,
		End:        r.End,
		Color:      r.Color,
		AllDay:     r.AllDay,
		Repeating:  r.Repeating,
		Display:    Hidden,
		Origin:     origin,
	}
}
