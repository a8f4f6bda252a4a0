// ics.go implements the Gateway contract on top of local ICS subscription
// files. Sources are parsed and recurrence-expanded into an in-memory
// snapshot of alert records; queries serve the snapshot and rebuild it
// lazily when a watcher invalidates it or it grows stale.
package gateway

import (
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"

	"remindd/pkg/applog"
	"remindd/pkg/clock"
	"remindd/pkg/model"
)

// Source describes a single ICS subscription file.
type Source struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// Options tunes the ICS gateway.
type Options struct {
	// DefaultReminder is the alarm offset before an occurrence start used
	// when an event declares no VALARM of its own.
	DefaultReminder time.Duration

	// Lookback and Horizon bound the expansion window around "now".
	Lookback time.Duration
	Horizon  time.Duration

	// MaxOccurrencesPerEvent caps recurrence expansion per event.
	MaxOccurrencesPerEvent int

	// RefreshTTL bounds how stale a snapshot may get before queries force
	// a rebuild even without an explicit invalidation.
	RefreshTTL time.Duration
}

func (o *Options) normalize() {
	if o.DefaultReminder <= 0 {
		o.DefaultReminder = 10 * time.Minute
	}
	if o.Lookback <= 0 {
		o.Lookback = 24 * time.Hour
	}
	if o.Horizon <= 0 {
		o.Horizon = 14 * 24 * time.Hour
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 5 * time.Minute
	}
}

// eventEntry is the snapshot's per-event view.
type eventEntry struct {
	record model.EventRecord
	// occurrences within the window, ordered by start.
	occurrences []struct{ start, end model.UnixMillis }
}

// snapshot is one parsed-and-expanded view of all sources.
type snapshot struct {
	builtAt time.Time
	// alerts ordered by (alert time, instance start, event ID).
	alerts []model.AlertRecord
	events map[int64]*eventEntry
}

// ICSGateway serves the Gateway contract from local ICS files.
type ICSGateway struct {
	sources []Source
	opts    Options
	clk     clock.Clock

	mu    sync.Mutex
	snap  *snapshot
	dirty bool

	// moved journal: event-level reschedules applied over the parsed data.
	// ICS files are not writable in place, so moves live here; the durable
	// active-alert state belongs to the engine's store, not the gateway.
	moved map[int64]struct{ start, end model.UnixMillis }

	// dismissed journal: source-level acknowledgments, one per exact
	// (event, alert time). An acknowledged alert is withheld from batch
	// delivery (AlertsAt) but still visible to targeted lookups, mirroring
	// a platform that stops re-delivery without deleting data. The journal
	// must never cover alerts the engine has not accepted yet: a catch-up
	// scan over a recurring event acknowledges occurrences one at a time.
	// The ledger provides the cross-restart dedup.
	dismissed map[ackKey]struct{}
}

// ackKey identifies one acknowledged alert.
type ackKey struct {
	eventID int64
	alertAt model.UnixMillis
}

// NewICS builds an ICS-backed gateway over the given sources.
func NewICS(sources []Source, opts Options, clk clock.Clock) *ICSGateway {
	opts.normalize()
	return &ICSGateway{
		sources:   sources,
		opts:      opts,
		clk:       clk,
		dirty:     true,
		moved:     make(map[int64]struct{ start, end model.UnixMillis }),
		dismissed: make(map[ackKey]struct{}),
	}
}

// Invalidate marks the snapshot stale. The daemon's file watcher calls this
// when a source changes; the next query rebuilds.
func (g *ICSGateway) Invalidate() {
	g.mu.Lock()
	g.dirty = true
	g.mu.Unlock()
}

// AlertsAt returns every alert due at exactly time t, excluding alerts the
// engine already acknowledged at the source.
func (g *ICSGateway) AlertsAt(t model.UnixMillis) ([]model.AlertRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, err := g.ensureSnapshot()
	if err != nil {
		return nil, err
	}

	var out []model.AlertRecord
	for _, a := range snap.alerts {
		if a.Key.AlertTime != t {
			continue
		}
		if _, ok := g.dismissed[ackKey{a.Key.EventID, a.Key.AlertTime}]; ok {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// AlertAt returns the alert for one event at exactly time t, or nil. The
// dismissal journal does not apply here: targeted lookups serve the drift
// reconciler, which must still see already-handled alerts.
func (g *ICSGateway) AlertAt(eventID int64, t model.UnixMillis) (*model.AlertRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, err := g.ensureSnapshot()
	if err != nil {
		return nil, err
	}

	for _, a := range snap.alerts {
		if a.Key.EventID == eventID && a.Key.AlertTime == t {
			rec := a
			return &rec, nil
		}
	}
	return nil, nil
}

// Event returns the bare event regardless of occurrence, or nil if unknown.
func (g *ICSGateway) Event(eventID int64) (*model.EventRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, err := g.ensureSnapshot()
	if err != nil {
		return nil, err
	}

	entry, ok := snap.events[eventID]
	if !ok {
		return nil, nil
	}
	rec := entry.record

	// The record's window tracks the next occurrence relative to now, or
	// the last known one if the event is entirely in the past.
	now := clock.NowMillis(g.clk)
	for _, occ := range entry.occurrences {
		rec.Start, rec.End = occ.start, occ.end
		if occ.start >= now {
			break
		}
	}
	rec.NextAlarm = 0
	for _, a := range snap.alerts {
		if a.Key.EventID == eventID && a.Key.AlertTime >= now {
			rec.NextAlarm = a.Key.AlertTime
			break
		}
	}
	return &rec, nil
}

// NextAlarmTime returns the earliest alert time at or after since within
// the horizon.
func (g *ICSGateway) NextAlarmTime(since model.UnixMillis) (model.UnixMillis, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, err := g.ensureSnapshot()
	if err != nil {
		return 0, false, err
	}

	idx := sort.Search(len(snap.alerts), func(i int) bool {
		return snap.alerts[i].Key.AlertTime >= since
	})
	if idx == len(snap.alerts) {
		return 0, false, nil
	}
	return snap.alerts[idx].Key.AlertTime, true, nil
}

// DismissAtSource records the acknowledgment of one fired alert, so batch
// delivery stops re-reporting exactly that alert.
func (g *ICSGateway) DismissAtSource(eventID int64, alertTime model.UnixMillis) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dismissed[ackKey{eventID, alertTime}] = struct{}{}
	return nil
}

// MoveEvent reschedules a non-repeating event to a new window. Repeating
// events are not movable through this path; individual instances belong to
// the source calendar.
func (g *ICSGateway) MoveEvent(eventID int64, newStart, newEnd model.UnixMillis) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap, err := g.ensureSnapshot()
	if err != nil {
		return false, err
	}

	entry, ok := snap.events[eventID]
	if !ok {
		return false, nil
	}
	if entry.record.Repeating {
		applog.Warn("move rejected for repeating event", "event_id", eventID)
		return false, nil
	}

	g.moved[eventID] = struct{ start, end model.UnixMillis }{newStart, newEnd}
	g.dirty = true
	return true, nil
}

// ensureSnapshot returns a fresh snapshot, rebuilding when invalidated or
// stale. Callers must hold g.mu.
func (g *ICSGateway) ensureSnapshot() (*snapshot, error) {
	now := g.clk.Now()
	if g.snap != nil && !g.dirty && now.Sub(g.snap.builtAt) < g.opts.RefreshTTL {
		return g.snap, nil
	}

	snap, err := g.build(now)
	if err != nil {
		// Keep serving the previous snapshot? No: a read failure must look
		// like "no data this cycle" so the engine leaves cursors alone.
		return nil, err
	}
	g.snap = snap
	g.dirty = false
	return snap, nil
}

// build parses every source and expands the window around now.
func (g *ICSGateway) build(now time.Time) (*snapshot, error) {
	from := now.Add(-g.opts.Lookback)
	to := now.Add(g.opts.Horizon)

	snap := &snapshot{
		builtAt: now,
		events:  make(map[int64]*eventEntry),
	}

	for i, src := range g.sources {
		body, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("read source %q: %w", src.ID, err)
		}
		parsed, err := parseICS(src, body)
		if err != nil {
			return nil, err
		}

		calendarID := int64(i + 1)
		occs := expandOccurrences(parsed, from, to, g.opts.MaxOccurrencesPerEvent)
		for _, occ := range occs {
			g.addOccurrence(snap, calendarID, occ)
		}
	}

	sort.Slice(snap.alerts, func(i, j int) bool {
		a, b := snap.alerts[i].Key, snap.alerts[j].Key
		if a.AlertTime != b.AlertTime {
			return a.AlertTime < b.AlertTime
		}
		if a.InstanceStart != b.InstanceStart {
			return a.InstanceStart < b.InstanceStart
		}
		return a.EventID < b.EventID
	})
	for _, entry := range snap.events {
		occs := entry.occurrences
		sort.Slice(occs, func(i, j int) bool { return occs[i].start < occs[j].start })
	}
	return snap, nil
}

func (g *ICSGateway) addOccurrence(snap *snapshot, calendarID int64, occ occurrence) {
	eventID := eventIDFor(occ.ev.Source.ID, occ.ev.UID)

	start := model.Millis(occ.start)
	end := model.Millis(occ.end)
	if mv, ok := g.moved[eventID]; ok && occ.ev.RawRRule == "" {
		start, end = mv.start, mv.end
	}

	repeating := occ.ev.RawRRule != "" || occ.ev.IsOverride

	entry, ok := snap.events[eventID]
	if !ok {
		entry = &eventEntry{record: model.EventRecord{
			EventID:    eventID,
			CalendarID: calendarID,
			Title:      occ.ev.Summary,
			Location:   occ.ev.Location,
			AllDay:     occ.ev.AllDay,
			Repeating:  repeating,
		}}
		snap.events[eventID] = entry
	}
	entry.occurrences = append(entry.occurrences,
		struct{ start, end model.UnixMillis }{start, end})

	triggers := occ.ev.Triggers
	if len(triggers) == 0 {
		triggers = []time.Duration{-g.opts.DefaultReminder}
	}
	for _, trig := range triggers {
		alertAt := start + model.UnixMillis(trig.Milliseconds())
		snap.alerts = append(snap.alerts, model.AlertRecord{
			Key: model.AlertKey{
				EventID:       eventID,
				AlertTime:     alertAt,
				InstanceStart: start,
			},
			CalendarID: calendarID,
			Title:      occ.ev.Summary,
			Location:   occ.ev.Location,
			Start:      start,
			End:        end,
			AllDay:     occ.ev.AllDay,
			Repeating:  repeating,
		})
	}
}

// eventIDFor derives a stable numeric event ID from the source and UID.
// FNV-1a with the sign bit cleared keeps IDs positive and deterministic
// across restarts.
func eventIDFor(sourceID, uid string) int64 {
	h := fnv.New64a()
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(uid))
	return int64(h.Sum64() &^ (uint64(1) << 63))
}

// Compile-time check that *ICSGateway implements Gateway.
var _ Gateway = (*ICSGateway)(nil)
