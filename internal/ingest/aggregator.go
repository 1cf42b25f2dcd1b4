// Package ingest buffers streamed match events and merges them into a
// refinement level's result index through a throttled flush.
package ingest

import (
	"log"
	"time"

	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

const (
	// DefaultAutoCollapse is the match count above which a file is collapsed
	DefaultAutoCollapse = 20

	largeVolume     = 1000 // pending matches that switch to small flush batches
	batchFilesLarge = 10
	batchFiles      = 50
)

// FlushDelay picks the throttle delay for the given number of pending matches
func FlushDelay(pendingMatches int) time.Duration {
	switch {
	case pendingMatches > 1000:
		return 500 * time.Millisecond
	case pendingMatches > 500:
		return 400 * time.Millisecond
	case pendingMatches > 100:
		return 300 * time.Millisecond
	default:
		return 150 * time.Millisecond
	}
}

// BatchLimit is the number of files merged by one flush
func BatchLimit(pendingMatches int) int {
	if pendingMatches > largeVolume {
		return batchFilesLarge
	}
	return batchFiles
}

// Target is the part of a refinement level the aggregator writes to
type Target interface {
	Results() *domain.ResultIndex
	SetResults(*domain.ResultIndex)
	ExpandedFiles() domain.Set
	// Scope returns the files this level may hold, nil for unrestricted
	Scope() domain.Set
}

// Options tune the aggregator
type Options struct {
	AutoCollapse int  // 0 means DefaultAutoCollapse
	AutoExpand   bool // expand newly merged files that stay below AutoCollapse
}

// FlushReport describes one merge into the target
type FlushReport struct {
	Files     []string // merged in FIFO order
	Matches   int
	Remaining int // files still pending
	Collapsed []string
}

// Pending summarizes buffered data for status display
type Pending struct {
	Files     int
	Matches   int
	Scheduled bool
	Stopped   bool
}

// Aggregator owns the pending buffer of one target. All methods must be
// called from the scheduler's execution context.
type Aggregator struct {
	sched  ports.Scheduler
	target Target
	opts   Options

	order          []string
	buf            map[string][]domain.MatchEvent
	pendingMatches int

	stopTimer func() bool
	stopped   bool
	listeners []func(FlushReport)
}

// New creates an aggregator writing into target
func New(sched ports.Scheduler, target Target, opts Options) *Aggregator {
	if opts.AutoCollapse <= 0 {
		opts.AutoCollapse = DefaultAutoCollapse
	}
	return &Aggregator{
		sched:  sched,
		target: target,
		opts:   opts,
		buf:    map[string][]domain.MatchEvent{},
	}
}

// OnFlush registers a listener called after every merge
func (a *Aggregator) OnFlush(fn func(FlushReport)) {
	a.listeners = append(a.listeners, fn)
}

// Ingest buffers a batch. A new search clears the target, the buffer and any
// scheduled flush before the batch is considered, and lifts a previous Stop.
func (a *Aggregator) Ingest(batch []domain.MatchEvent, isNewSearch bool) {
	if isNewSearch {
		a.reset()
		a.target.SetResults(domain.NewResultIndex())
		a.stopped = false
	}
	if a.stopped {
		return
	}

	scope := a.target.Scope()
	dropped := 0
	for _, ev := range batch {
		if ev.Discardable() {
			continue
		}
		if scope != nil && !scope.Has(ev.FileID) {
			dropped++
			continue
		}
		if _, ok := a.buf[ev.FileID]; !ok {
			a.order = append(a.order, ev.FileID)
		}
		a.buf[ev.FileID] = append(a.buf[ev.FileID], ev)
		a.pendingMatches += len(ev.Matches)
	}
	if dropped > 0 {
		log.Printf("ingest: dropped %d events outside refinement scope", dropped)
	}
	a.schedule()
}

func (a *Aggregator) schedule() {
	if a.stopTimer != nil || len(a.order) == 0 {
		return
	}
	a.stopTimer = a.sched.AfterFunc(FlushDelay(a.pendingMatches), a.flush)
}

func (a *Aggregator) flush() {
	a.stopTimer = nil
	if a.stopped || len(a.order) == 0 {
		return
	}
	a.merge(BatchLimit(a.pendingMatches))
	a.schedule()
}

// merge moves up to limit files from the buffer into the target
func (a *Aggregator) merge(limit int) {
	n := min(limit, len(a.order))
	files := a.order[:n:n]
	a.order = a.order[n:]

	var events []domain.MatchEvent
	report := FlushReport{Files: files}
	for _, id := range files {
		for _, ev := range a.buf[id] {
			report.Matches += len(ev.Matches)
		}
		events = append(events, a.buf[id]...)
		delete(a.buf, id)
	}
	a.pendingMatches -= report.Matches

	prev := a.target.Results()
	idx := prev.Append(events...)
	a.target.SetResults(idx)

	expanded := a.target.ExpandedFiles()
	for _, id := range files {
		count := idx.MatchCount(id)
		if count > a.opts.AutoCollapse {
			if expanded.Has(id) {
				expanded.Remove(id)
				report.Collapsed = append(report.Collapsed, id)
			}
			continue
		}
		if a.opts.AutoExpand && count > 0 && !prev.Has(id) {
			expanded.Add(id)
		}
	}
	report.Remaining = len(a.order)

	for _, fn := range a.listeners {
		fn(report)
	}
}

// Drain merges everything pending right away, in flush-sized batches
func (a *Aggregator) Drain() {
	if a.stopTimer != nil {
		a.stopTimer()
		a.stopTimer = nil
	}
	for len(a.order) > 0 && !a.stopped {
		a.merge(BatchLimit(a.pendingMatches))
	}
}

// Stop halts ingestion until the next new search. Pending events and the
// scheduled flush are discarded; merged results stay.
func (a *Aggregator) Stop() {
	a.stopped = true
	a.reset()
}

// Clear drops the target's results and everything pending
func (a *Aggregator) Clear() {
	a.reset()
	a.target.SetResults(domain.NewResultIndex())
}

// Pending reports the buffered state
func (a *Aggregator) Pending() Pending {
	return Pending{
		Files:     len(a.order),
		Matches:   a.pendingMatches,
		Scheduled: a.stopTimer != nil,
		Stopped:   a.stopped,
	}
}

func (a *Aggregator) reset() {
	if a.stopTimer != nil {
		a.stopTimer()
		a.stopTimer = nil
	}
	a.order = nil
	a.buf = map[string][]domain.MatchEvent{}
	a.pendingMatches = 0
}
