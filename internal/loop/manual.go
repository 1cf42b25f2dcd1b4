package loop

import (
	"slices"
	"time"

	"resultlens/internal/ports"
)

// Manual is a virtual clock. Timers fire only when the test advances time,
// in deadline order, on the calling goroutine.
type Manual struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at  time.Duration
	seq int
	fn  func()
}

var _ ports.Scheduler = (*Manual)(nil)

// NewManual returns a clock at time zero
func NewManual() *Manual {
	return &Manual{}
}

// Now returns the virtual time elapsed since creation
func (m *Manual) Now() time.Duration {
	return m.now
}

// AfterFunc registers fn to run once the clock passes now+d
func (m *Manual) AfterFunc(d time.Duration, fn func()) func() bool {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() bool {
		i := slices.Index(m.timers, t)
		if i < 0 {
			return false
		}
		m.timers = slices.Delete(m.timers, i, i+1)
		return true
	}
}

// Pending returns the number of timers not yet fired
func (m *Manual) Pending() int {
	return len(m.timers)
}

// NextDeadline returns the delay until the earliest timer
func (m *Manual) NextDeadline() (time.Duration, bool) {
	t := m.next()
	if t == nil {
		return 0, false
	}
	return t.at - m.now, true
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including timers scheduled by callbacks within the window
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.next()
		if t == nil || t.at > target {
			break
		}
		m.timers = slices.DeleteFunc(m.timers, func(x *manualTimer) bool { return x == t })
		m.now = t.at
		t.fn()
	}
	m.now = target
}

// RunAll fires timers until none remain. It gives up after limit firings
// and reports whether the queue drained.
func (m *Manual) RunAll(limit int) bool {
	for range limit {
		t := m.next()
		if t == nil {
			return true
		}
		m.Advance(t.at - m.now)
	}
	return len(m.timers) == 0
}

func (m *Manual) next() *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}
