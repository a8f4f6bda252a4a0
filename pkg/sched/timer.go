// timer.go provides the in-process AlarmTimer used by the daemon. On a
// platform with a real wake-timer facility this is where the binding would
// live; the contract (single outstanding timer, replace semantics) is the
// same either way.
package sched

import (
	"sync"
	"time"

	"remindd/pkg/clock"
	"remindd/pkg/model"
)

// StdTimer drives a callback from a single time.Timer. Schedule replaces
// any pending fire; Cancel clears it. The exact flag is accepted for
// contract parity but both classes share one in-process precision.
type StdTimer struct {
	clk    clock.Clock
	onFire func()

	mu sync.Mutex
	t  *time.Timer
}

// NewStdTimer builds a timer that invokes onFire on its own goroutine when
// the programmed instant arrives.
func NewStdTimer(clk clock.Clock, onFire func()) *StdTimer {
	return &StdTimer{clk: clk, onFire: onFire}
}

// Schedule programs the timer for the given instant, replacing any
// previously programmed wake.
func (s *StdTimer) Schedule(at model.UnixMillis, exact bool) {
	_ = exact
	s.mu.Lock()
	defer s.mu.Unlock()

	d := at.Time().Sub(s.clk.Now())
	if d < 0 {
		d = 0
	}
	if s.t != nil {
		s.t.Stop()
	}
	s.t = time.AfterFunc(d, s.onFire)
}

// Cancel clears any pending fire.
func (s *StdTimer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
}

// Compile-time check that *StdTimer implements AlarmTimer.
var _ AlarmTimer = (*StdTimer)(nil)
