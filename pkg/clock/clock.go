// Package clock provides the injectable time source used by the engine.
//
// Every scheduling decision in remindd compares persisted millisecond
// timestamps against "now". Reading time.Now directly would make the
// reconciliation and scheduling logic untestable, so all components take a
// Clock at construction and tests substitute a Fake they can step manually.
package clock

import (
	"sync"
	"time"

	"remindd/pkg/model"
)

// Clock is the time source abstraction.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time { return time.Now() }

// NowMillis returns the clock's current time as UnixMillis.
func NowMillis(c Clock) model.UnixMillis {
	return model.Millis(c.Now())
}

// Fake is a settable clock for tests. Goroutine-safe so timer callbacks
// fired from test goroutines can read it while the test advances it.
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

// NewFake returns a Fake pinned to the given instant.
func NewFake(t time.Time) *Fake {
	return &Fake{t: t}
}

// NewFakeMillis returns a Fake pinned to the given millisecond timestamp.
func NewFakeMillis(m model.UnixMillis) *Fake {
	return NewFake(m.Time())
}

// Now returns the fake's current instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set pins the fake to a specific instant.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

// Advance moves the fake forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}
