package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StdoutSink writes notifications as plain lines, for headless runs and
// for watching what the presenter does during development.
type StdoutSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdoutSink(w io.Writer) *StdoutSink {
	return &StdoutSink{w: w}
}

func (s *StdoutSink) Post(n Notification, quiet bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode := "alert"
	if quiet {
		mode = "quiet"
	}
	if n.Summary {
		_, err := fmt.Fprintf(s.w, "[%s] #%d +%d more upcoming\n", mode, n.ID, n.Count)
		return err
	}
	when := ""
	if n.Start != 0 {
		when = " @ " + n.Start.Time().Format(time.RFC3339)
	}
	where := ""
	if n.Location != "" {
		where = " (" + n.Location + ")"
	}
	_, err := fmt.Fprintf(s.w, "[%s] #%d %s%s%s\n", mode, n.ID, n.Title, when, where)
	return err
}

func (s *StdoutSink) Cancel(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "[cancel] #%d\n", id)
	return err
}

func (s *StdoutSink) CancelAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, "[cancel] all")
	return err
}

var _ Sink = (*StdoutSink)(nil)
