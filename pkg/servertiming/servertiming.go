// Package servertiming records named timings for a tick, written as the
// Server-Timing response header.
package servertiming

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Timer struct {
	clock clockwork.Clock

	mu      sync.Mutex
	order   []string
	timings map[string]*timing
}

type timing struct {
	desc  string
	total time.Duration
	count int
}

// New returns a Timer using the given clock, or the real clock if nil.
func New(clock clockwork.Clock) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock, timings: map[string]*timing{}}
}

// Start starts timing name, returning a func which stops the timer.  Timing
// the same name several times sums the durations.  A nil Timer records
// nothing.
func (t *Timer) Start(name, desc string) func() {
	if t == nil {
		return func() {}
	}
	start := t.clock.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			t.add(name, desc, t.clock.Since(start))
		})
	}
}

// Wrap times fn under name.
func (t *Timer) Wrap(name, desc string, fn func() error) error {
	stop := t.Start(name, desc)
	defer stop()
	return fn()
}

func (t *Timer) add(name, desc string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tm, ok := t.timings[name]
	if !ok {
		tm = &timing{desc: desc}
		t.timings[name] = tm
		t.order = append(t.order, name)
	}
	tm.total += d
	tm.count++
}

// Header returns the Server-Timing header value, with timings in the order
// they were first recorded.
func (t *Timer) Header() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := make([]string, 0, len(t.order))
	for _, name := range t.order {
		tm := t.timings[name]
		desc := tm.desc
		if tm.count > 1 {
			desc = fmt.Sprintf("%s (%dx)", desc, tm.count)
		}
		part := name
		if desc != "" {
			part += fmt.Sprintf(";desc=%q", desc)
		}
		part += fmt.Sprintf(";dur=%.3f", float64(tm.total.Microseconds())/1000)
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
