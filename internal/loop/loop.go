// Package loop provides the single execution context headless hosts run the
// session on, and a manual clock for deterministic tests.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"resultlens/internal/ports"
)

// ErrClosed is returned when work is posted to a stopped loop
var ErrClosed = errors.New("loop closed")

// Loop runs posted closures one at a time, in FIFO order, on one goroutine
type Loop struct {
	queue chan func()
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

var _ ports.Scheduler = (*Loop)(nil)

// New creates a loop with the given queue capacity
func New(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 256
	}
	return &Loop{
		queue: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
}

// Start launches the loop goroutine. It stops when ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.run(ctx)
		}()
	})
}

func (l *Loop) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Stop halts the loop. Closures still queued are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Wait blocks until the loop goroutine has exited
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Post queues fn. It blocks while the queue is full and fails once the loop
// is stopped.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Do runs fn on the loop and waits for it to finish
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc posts fn onto the loop after d
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() bool {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		_ = l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() bool {
		stopped := t.Stop()
		// a fired timer may already have posted; the flag keeps fn from running
		return !cancelled.Swap(true) && stopped
	}
}
