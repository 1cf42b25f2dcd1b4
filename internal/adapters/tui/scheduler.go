package tui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"resultlens/internal/ports"
)

// Scheduler implements ports.Scheduler on top of a bubbletea program.
// Timers fire on their own goroutine and post a message; the callback runs
// when Update handles that message, so it never races the session.
type Scheduler struct {
	send func(tea.Msg)
}

// Ensure Scheduler implements Scheduler
var _ ports.Scheduler = (*Scheduler)(nil)

type timer struct {
	fn      func()
	stopped atomic.Bool
	fired   atomic.Bool
}

type timerMsg struct {
	t *timer
}

// NewScheduler creates an unbound scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Bind sets the function used to post messages, usually tea.Program.Send.
// It must be called before the program starts.
func (s *Scheduler) Bind(send func(tea.Msg)) {
	s.send = send
}

// Send posts msg to the program
func (s *Scheduler) Send(msg tea.Msg) {
	if s.send != nil {
		s.send(msg)
	}
}

// AfterFunc runs fn on the program's Update after d
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	t := &timer{fn: fn}
	tt := time.AfterFunc(d, func() { s.Send(timerMsg{t: t}) })
	return func() bool {
		tt.Stop()
		if t.fired.Load() {
			return false
		}
		return t.stopped.CompareAndSwap(false, true)
	}
}

// Handle runs the callback carried by msg. It reports whether msg was a
// timer message.
func (s *Scheduler) Handle(msg tea.Msg) bool {
	m, ok := msg.(timerMsg)
	if !ok {
		return false
	}
	if !m.t.stopped.Load() && m.t.fired.CompareAndSwap(false, true) {
		m.t.fn()
	}
	return true
}
