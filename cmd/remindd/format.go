package main

import (
	"time"

	"remindd/pkg/model"
)

func millis(v int64) model.UnixMillis { return model.UnixMillis(v) }

// formatMillis renders a timestamp in the configured timezone.
var appLocation = time.Local

func formatMillis(m model.UnixMillis) string {
	if m == 0 {
		return "-"
	}
	return m.Time().In(appLocation).Format("2006-01-02 15:04:05")
}
