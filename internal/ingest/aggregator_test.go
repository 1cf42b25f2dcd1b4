package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultlens/internal/domain"
	"resultlens/internal/loop"
)

type fakeLevel struct {
	results  *domain.ResultIndex
	expanded domain.Set
	scope    domain.Set
	sets     int
}

func newFakeLevel() *fakeLevel {
	return &fakeLevel{results: domain.NewResultIndex(), expanded: domain.NewSet()}
}

func (f *fakeLevel) Results() *domain.ResultIndex { return f.results }
func (f *fakeLevel) SetResults(r *domain.ResultIndex) {
	f.results = r
	f.sets++
}
func (f *fakeLevel) ExpandedFiles() domain.Set { return f.expanded }
func (f *fakeLevel) Scope() domain.Set         { return f.scope }

func event(id string, n int) domain.MatchEvent {
	e := domain.MatchEvent{FileID: id}
	for i := range n {
		e.Matches = append(e.Matches, domain.Match{Start: i, End: i + 1})
	}
	return e
}

func TestFlushDelay(t *testing.T) {
	tests := []struct {
		pending int
		want    time.Duration
	}{
		{0, 150 * time.Millisecond},
		{100, 150 * time.Millisecond},
		{101, 300 * time.Millisecond},
		{501, 400 * time.Millisecond},
		{1000, 400 * time.Millisecond},
		{1001, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.pending), func(t *testing.T) {
			if got := FlushDelay(tt.pending); got != tt.want {
				t.Errorf("FlushDelay(%d) = %v, want %v", tt.pending, got, tt.want)
			}
		})
	}
	assert.Equal(t, 50, BatchLimit(1000))
	assert.Equal(t, 10, BatchLimit(1001))
}

func TestIngestNewSearch(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	agg := New(clock, level, Options{})

	agg.Ingest([]domain.MatchEvent{{FileID: "a.ts", Matches: []domain.Match{{Start: 0, End: 3}}}}, true)

	assert.Zero(t, level.results.Len(), "nothing merged before the flush")
	clock.Advance(149 * time.Millisecond)
	assert.Zero(t, level.results.Len())
	clock.Advance(time.Millisecond)

	require.Equal(t, []string{"a.ts"}, level.results.Keys())
	assert.Equal(t, domain.Stats{NumMatches: 1, NumFilesWithMatches: 1}, level.results.Stats())
}

func TestIngestFiltersEvents(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	agg := New(clock, level, Options{})

	agg.Ingest([]domain.MatchEvent{
		event("empty", 0),
		{FileID: "broken", Err: &domain.ErrorInfo{Message: "denied"}},
		event("hit", 2),
	}, true)
	clock.RunAll(10)

	assert.Equal(t, []string{"broken", "hit"}, level.results.Keys())
}

func TestIngestRespectsScope(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	level.scope = domain.NewSet("a", "b")
	agg := New(clock, level, Options{})

	agg.Ingest([]domain.MatchEvent{event("a", 1), event("c", 1), event("b", 1)}, true)
	clock.RunAll(10)

	assert.Equal(t, []string{"a", "b"}, level.results.Keys())
}

func TestNewSearchClearsFirst(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	agg := New(clock, level, Options{})

	agg.Ingest([]domain.MatchEvent{event("old", 1)}, true)
	clock.RunAll(10)
	agg.Ingest([]domain.MatchEvent{event("stale", 1)}, false)
	agg.Ingest([]domain.MatchEvent{event("new", 1)}, true)

	assert.Zero(t, level.results.Len(), "clear happens before the batch")
	clock.RunAll(10)
	assert.Equal(t, []string{"new"}, level.results.Keys())
}

func TestFlushBatching(t *testing.T) {
	t.Run("small volume merges 50 files per tick", func(t *testing.T) {
		clock := loop.NewManual()
		level := newFakeLevel()
		agg := New(clock, level, Options{})
		var reports []FlushReport
		agg.OnFlush(func(r FlushReport) { reports = append(reports, r) })

		var batch []domain.MatchEvent
		for i := range 120 {
			batch = append(batch, event(fmt.Sprintf("f%03d", i), 1))
		}
		agg.Ingest(batch, true)
		clock.RunAll(10)

		require.Len(t, reports, 3)
		assert.Len(t, reports[0].Files, 50)
		assert.Equal(t, 70, reports[0].Remaining)
		assert.Len(t, reports[2].Files, 20)
		assert.Equal(t, "f000", level.results.Keys()[0], "fifo order")
		assert.Equal(t, 120, level.results.Len())
	})

	t.Run("large volume merges 10 files per tick", func(t *testing.T) {
		clock := loop.NewManual()
		level := newFakeLevel()
		agg := New(clock, level, Options{})

		var batch []domain.MatchEvent
		for i := range 30 {
			batch = append(batch, event(fmt.Sprintf("f%02d", i), 40))
		}
		agg.Ingest(batch, true)

		assert.Equal(t, Pending{Files: 30, Matches: 1200, Scheduled: true}, agg.Pending())
		clock.Advance(500 * time.Millisecond)
		assert.Equal(t, 10, level.results.Len())

		// 800 matches left: next tick waits 400ms and merges all 20
		clock.Advance(399 * time.Millisecond)
		assert.Equal(t, 10, level.results.Len())
		clock.Advance(time.Millisecond)
		assert.Equal(t, 30, level.results.Len())
		assert.Zero(t, clock.Pending())
	})
}

func TestAutoCollapse(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	level.expanded.Add("big.go")
	level.expanded.Add("small.go")
	agg := New(clock, level, Options{})
	var collapsed []string
	agg.OnFlush(func(r FlushReport) { collapsed = append(collapsed, r.Collapsed...) })

	agg.Ingest([]domain.MatchEvent{event("big.go", 25), event("small.go", 3)}, true)
	clock.RunAll(10)

	assert.False(t, level.expanded.Has("big.go"))
	assert.True(t, level.expanded.Has("small.go"))
	assert.Equal(t, []string{"big.go"}, collapsed)

	t.Run("cumulative count across flushes", func(t *testing.T) {
		level.expanded.Add("small.go")
		agg.Ingest([]domain.MatchEvent{event("small.go", 18)}, false)
		clock.RunAll(10)
		assert.False(t, level.expanded.Has("small.go"))
	})
}

func TestAutoExpand(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	agg := New(clock, level, Options{AutoExpand: true})

	agg.Ingest([]domain.MatchEvent{event("few.go", 2), event("many.go", 30)}, true)
	clock.RunAll(10)

	assert.True(t, level.expanded.Has("few.go"))
	assert.False(t, level.expanded.Has("many.go"))
}

func TestStop(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	agg := New(clock, level, Options{})

	agg.Ingest([]domain.MatchEvent{event("a", 1)}, true)
	clock.RunAll(10)
	agg.Ingest([]domain.MatchEvent{event("b", 1)}, false)
	agg.Stop()

	assert.Zero(t, clock.Pending(), "scheduled flush cancelled")
	assert.Equal(t, Pending{Stopped: true}, agg.Pending())

	agg.Ingest([]domain.MatchEvent{event("c", 1)}, false)
	clock.RunAll(10)
	assert.Equal(t, []string{"a"}, level.results.Keys(), "merged results survive, later events ignored")

	agg.Ingest([]domain.MatchEvent{event("d", 1)}, true)
	clock.RunAll(10)
	assert.Equal(t, []string{"d"}, level.results.Keys())
}

func TestDrainAndClear(t *testing.T) {
	clock := loop.NewManual()
	level := newFakeLevel()
	agg := New(clock, level, Options{})

	var batch []domain.MatchEvent
	for i := range 75 {
		batch = append(batch, event(fmt.Sprintf("f%d", i), 1))
	}
	agg.Ingest(batch, true)
	agg.Drain()

	assert.Equal(t, 75, level.results.Len())
	assert.Zero(t, clock.Pending())

	agg.Ingest([]domain.MatchEvent{event("x", 1)}, false)
	agg.Clear()
	assert.Zero(t, level.results.Len())
	assert.Zero(t, agg.Pending().Files)
}
