// Package gateway provides read/write access to the calendar subsystem.
//
// The engine consumes the Gateway interface only; the concrete ICS-backed
// implementation lives in this package too. Every call may fail (a source
// file unreadable, a parse error); callers must treat failure as "no data
// this cycle" and retry on the next trigger, never as fatal, and must never
// advance a scan cursor past an alert they failed to process.
package gateway

import "remindd/pkg/model"

// Gateway is the calendar subsystem contract.
type Gateway interface {
	// AlertsAt returns every alert due at exactly time t.
	AlertsAt(t model.UnixMillis) ([]model.AlertRecord, error)

	// AlertAt returns the alert for one event at exactly time t, or nil if
	// the event no longer produces an alert at that time.
	AlertAt(eventID int64, t model.UnixMillis) (*model.AlertRecord, error)

	// Event returns the bare event regardless of occurrence, or nil if the
	// event cannot be found at all.
	Event(eventID int64) (*model.EventRecord, error)

	// NextAlarmTime returns the earliest alert time at or after since, and
	// whether one exists within the gateway's horizon.
	NextAlarmTime(since model.UnixMillis) (model.UnixMillis, bool, error)

	// DismissAtSource acknowledges one fired alert at the source so the
	// platform does not re-deliver it. Other alerts of the same event,
	// including earlier unhandled ones, stay deliverable.
	DismissAtSource(eventID int64, alertTime model.UnixMillis) error

	// MoveEvent reschedules an event to a new window. Reports whether the
	// event was found and moved.
	MoveEvent(eventID int64, newStart, newEnd model.UnixMillis) (bool, error)
}
