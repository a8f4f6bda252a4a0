// quiet.go derives the quiet window from user configuration. The window is
// a time-varying value recomputed per scheduling decision, never persisted.
package sched

import (
	"time"

	"remindd/pkg/model"
)

// QuietConfig is a daily quiet window in local time, expressed as minutes
// after midnight. A window may wrap past midnight (start > end).
type QuietConfig struct {
	Enabled     bool
	StartMinute int
	EndMinute   int
}

// SilentUntil returns the instant the active quiet window ends, or 0 when
// no window is active at now.
func (q QuietConfig) SilentUntil(now time.Time) model.UnixMillis {
	if !q.Enabled || q.StartMinute == q.EndMinute {
		return 0
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	minute := int(now.Sub(midnight) / time.Minute)

	if q.StartMinute < q.EndMinute {
		// Same-day window, e.g. 13:00-14:00.
		if minute >= q.StartMinute && minute < q.EndMinute {
			return model.Millis(midnight.Add(time.Duration(q.EndMinute) * time.Minute))
		}
		return 0
	}

	// Wrapping window, e.g. 22:00-07:00.
	if minute >= q.StartMinute {
		return model.Millis(midnight.Add(24*time.Hour + time.Duration(q.EndMinute)*time.Minute))
	}
	if minute < q.EndMinute {
		return model.Millis(midnight.Add(time.Duration(q.EndMinute) * time.Minute))
	}
	return 0
}
