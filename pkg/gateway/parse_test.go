package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"-PT15M", -15 * time.Minute, false},
		{"PT0S", 0, false},
		{"-P1DT9H", -(24*time.Hour + 9*time.Hour), false},
		{"PT1H30M", 90 * time.Minute, false},
		{"-P1W", -7 * 24 * time.Hour, false},
		{"pt5m", 5 * time.Minute, false}, // case-insensitive
		{"15M", 0, true},                 // missing P
		{"P1M", 0, true},                 // months are ambiguous, rejected
		{"PT5", 0, true},                 // trailing value
		{"PTM", 0, true},                 // designator without value
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseISODuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseICS_AllDayAndExdate(t *testing.T) {
	body := []byte(
		"BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//remindd test//EN\n" +
			"BEGIN:VEVENT\nUID:holiday@test\nDTSTART;VALUE=DATE:20240315\n" +
			"DTEND;VALUE=DATE:20240316\nSUMMARY:Holiday\n" +
			"RRULE:FREQ=YEARLY\nEXDATE:20250315\n" +
			"END:VEVENT\nEND:VCALENDAR\n")

	events, err := parseICS(Source{ID: "test"}, body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.True(t, ev.AllDay)
	assert.Equal(t, "FREQ=YEARLY", ev.RawRRule)
	require.Len(t, ev.ExDates, 1)
	assert.Empty(t, ev.Triggers)
}

func TestParseICS_SkipsEventWithoutUID(t *testing.T) {
	body := []byte(
		"BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//remindd test//EN\n" +
			"BEGIN:VEVENT\nDTSTART:20240301T100000Z\nSUMMARY:No UID\nEND:VEVENT\n" +
			"BEGIN:VEVENT\nUID:ok@test\nDTSTART:20240301T110000Z\nSUMMARY:OK\nEND:VEVENT\n" +
			"END:VCALENDAR\n")

	events, err := parseICS(Source{ID: "test"}, body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ok@test", events[0].UID)
}

func TestParseICS_EmptyBody(t *testing.T) {
	_, err := parseICS(Source{ID: "test"}, nil)
	assert.Error(t, err)
}
