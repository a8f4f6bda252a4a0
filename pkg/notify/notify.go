// Package notify maps the active-alert set onto user-visible notifications.
//
// Each visible alert owns one notification, stable for as long as the alert
// stays visible. When too many alerts pile up, the older ones collapse into
// a single aggregate summary notification; the most recent ones keep their
// own. Sound and vibration are suppressed ("quiet post") for re-posts,
// re-expansions, muted alerts, and non-primary alerts inside a quiet
// window.
package notify

import (
	"sync"

	"remindd/pkg/clock"
	"remindd/pkg/model"
)

// summaryID is the reserved notification ID for the aggregate summary.
const summaryID = 1

// Notification is the renderable content handed to a Sink.
type Notification struct {
	ID       int              `json:"id"`
	Key      model.AlertKey   `json:"key,omitempty"`
	Title    string           `json:"title"`
	Location string           `json:"location,omitempty"`
	Start    model.UnixMillis `json:"start,omitempty"`
	AllDay   bool             `json:"all_day,omitempty"`

	// Summary marks the aggregate notification; Count is the number of
	// collapsed alerts it represents.
	Summary bool `json:"summary,omitempty"`
	Count   int  `json:"count,omitempty"`
}

// Sink is the OS notification contract.
type Sink interface {
	Post(n Notification, quiet bool) error
	Cancel(id int) error
	CancelAll() error
}

// Transition records a display-state change the caller must persist.
type Transition struct {
	Key       model.AlertKey
	Display   model.DisplayStatus
	VisibleAt model.UnixMillis // nonzero when the alert became visible
}

// RefreshOptions control one rendering pass.
type RefreshOptions struct {
	// ForcedRepost posts every notification quietly, e.g. after a restart
	// when they were all lost with the process.
	ForcedRepost bool

	// QuietActive suppresses sound for all but the primary alert.
	QuietActive bool
}

// Presenter owns notification IDs and the collapse policy.
type Presenter struct {
	sink       Sink
	clk        clock.Clock
	maxVisible int

	mu           sync.Mutex
	ids          map[model.AlertKey]int
	nextID       int
	summaryShown bool
}

// NewPresenter builds a presenter over the given sink. maxVisible is the
// total notification budget: maxVisible-1 individual alerts plus the
// summary slot.
func NewPresenter(sink Sink, clk clock.Clock, maxVisible int) *Presenter {
	if maxVisible < 2 {
		maxVisible = 2
	}
	return &Presenter{
		sink:       sink,
		clk:        clk,
		maxVisible: maxVisible,
		ids:        make(map[model.AlertKey]int),
		nextID:     summaryID + 1,
	}
}

// Refresh renders the currently visible alerts (store order: ascending
// alert time) and returns the display transitions to persist. The most
// recent maxVisible-1 alerts are shown individually; everything older is
// collapsed into the summary.
func (p *Presenter) Refresh(visible []model.ActiveAlert, opts RefreshOptions) []Transition {
	p.mu.Lock()
	defer p.mu.Unlock()

	normalFrom := len(visible) - (p.maxVisible - 1)
	if normalFrom < 0 {
		normalFrom = 0
	}

	now := clock.NowMillis(p.clk)
	var transitions []Transition
	collapsedCount := 0

	for i := range visible {
		a := &visible[i]
		if i < normalFrom {
			collapsedCount++
			if a.Display != model.DisplayedCollapsed {
				// Its individual notification folds into the summary.
				if id, ok := p.ids[a.Key]; ok {
					_ = p.sink.Cancel(id)
				}
				transitions = append(transitions, Transition{Key: a.Key, Display: model.DisplayedCollapsed})
			}
			continue
		}

		primary := i == len(visible)-1
		wasShown := a.Display == model.DisplayedNormal
		if wasShown && !opts.ForcedRepost {
			continue
		}

		quiet := opts.ForcedRepost || a.Muted ||
			a.Display == model.DisplayedCollapsed || // re-expansion
			(opts.QuietActive && !primary)

		_ = p.sink.Post(Notification{
			ID:       p.idFor(a.Key),
			Key:      a.Key,
			Title:    a.Title,
			Location: a.Location,
			Start:    a.Start,
			AllDay:   a.AllDay,
		}, quiet)

		if !wasShown {
			transitions = append(transitions, Transition{
				Key:       a.Key,
				Display:   model.DisplayedNormal,
				VisibleAt: now,
			})
		}
	}

	if collapsedCount > 0 {
		// The aggregate is always a quiet post; its members already made
		// noise when first shown.
		_ = p.sink.Post(Notification{
			ID:      summaryID,
			Title:   "upcoming events",
			Summary: true,
			Count:   collapsedCount,
		}, true)
		p.summaryShown = true
	} else if p.summaryShown {
		_ = p.sink.Cancel(summaryID)
		p.summaryShown = false
	}

	return transitions
}

// Remove withdraws the notification for one alert (dismiss or snooze) and
// releases its ID.
func (p *Presenter) Remove(key model.AlertKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.ids[key]; ok {
		_ = p.sink.Cancel(id)
		delete(p.ids, key)
	}
}

// RemoveAll withdraws everything, including the summary.
func (p *Presenter) RemoveAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.sink.CancelAll()
	p.ids = make(map[model.AlertKey]int)
	p.summaryShown = false
}

// idFor returns the stable notification ID for a key, allocating on first
// use. Callers must hold p.mu.
func (p *Presenter) idFor(key model.AlertKey) int {
	if id, ok := p.ids[key]; ok {
		return id
	}
	id := p.nextID
	p.nextID++
	p.ids[key] = id
	return id
}
