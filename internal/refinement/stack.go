// Package refinement keeps the stack of "search within these results" levels
package refinement

import (
	"resultlens/internal/domain"
	"resultlens/internal/ingest"
	"resultlens/internal/ports"
)

// Level is one result scope. Level 0 is the unrestricted root search; level
// k>0 only accepts files matched by level k-1 when it was created.
type Level struct {
	Index    int
	Query    domain.QueryParams
	ViewMode domain.ViewMode
	// Snapshot holds the frozen stats once a deeper level was pushed
	Snapshot *domain.Stats

	results         *domain.ResultIndex
	expandedFiles   domain.Set
	expandedFolders domain.Set
	scope           domain.Set
	agg             *ingest.Aggregator
}

var _ ingest.Target = (*Level)(nil)

func (l *Level) Results() *domain.ResultIndex      { return l.results }
func (l *Level) SetResults(r *domain.ResultIndex)  { l.results = r }
func (l *Level) ExpandedFiles() domain.Set         { return l.expandedFiles }
func (l *Level) ExpandedFolders() domain.Set       { return l.expandedFolders }
func (l *Level) Scope() domain.Set                 { return l.scope }
func (l *Level) Aggregator() *ingest.Aggregator    { return l.agg }
func (l *Level) Stats() domain.Stats               { return l.results.Stats() }
func (l *Level) SetViewMode(m domain.ViewMode)     { l.ViewMode = m }
func (l *Level) Restricted() bool                  { return l.scope != nil }

// Summary returns the frozen stats when present, else the live ones
func (l *Level) Summary() domain.Stats {
	if l.Snapshot != nil {
		return *l.Snapshot
	}
	return l.Stats()
}

// Breadcrumb is what a host shows for one level
type Breadcrumb struct {
	Index   int          `json:"index"`
	Pattern string       `json:"pattern"`
	Stats   domain.Stats `json:"stats"`
	Frozen  bool         `json:"frozen,omitempty"`
	Active  bool         `json:"active,omitempty"`
}

// Stack is the ordered list of levels. Level 0 always exists.
type Stack struct {
	sched  ports.Scheduler
	opts   ingest.Options
	levels []*Level
	active int

	listeners []func(*Level, ingest.FlushReport)
}

// New creates a stack holding an empty root level
func New(sched ports.Scheduler, opts ingest.Options) *Stack {
	s := &Stack{sched: sched, opts: opts}
	s.levels = []*Level{s.newLevel(0, domain.QueryParams{}, nil, domain.ViewTree)}
	return s
}

func (s *Stack) newLevel(index int, q domain.QueryParams, scope domain.Set, mode domain.ViewMode) *Level {
	l := &Level{
		Index:           index,
		Query:           q,
		ViewMode:        mode,
		results:         domain.NewResultIndex(),
		expandedFiles:   domain.NewSet(),
		expandedFolders: domain.NewSet(),
		scope:           scope,
	}
	l.agg = ingest.New(s.sched, l, s.opts)
	l.agg.OnFlush(func(r ingest.FlushReport) {
		for _, fn := range s.listeners {
			fn(l, r)
		}
	})
	return l
}

// OnFlush registers a listener for merges into any level
func (s *Stack) OnFlush(fn func(*Level, ingest.FlushReport)) {
	s.listeners = append(s.listeners, fn)
}

// Len returns the number of levels
func (s *Stack) Len() int { return len(s.levels) }

// Active returns the active level index
func (s *Stack) Active() int { return s.active }

// ActiveLevel returns the level currently shown
func (s *Stack) ActiveLevel() *Level { return s.levels[s.active] }

// Deepest returns the last level
func (s *Stack) Deepest() *Level { return s.levels[len(s.levels)-1] }

// Level returns level i
func (s *Stack) Level(i int) (*Level, bool) {
	if i < 0 || i >= len(s.levels) {
		return nil, false
	}
	return s.levels[i], true
}

// Levels returns the levels from root to deepest
func (s *Stack) Levels() []*Level {
	out := make([]*Level, len(s.levels))
	copy(out, s.levels)
	return out
}

// Refine freezes the deepest level's stats and pushes a new empty level
// restricted to the files the deepest level matched. The new level is active.
func (s *Stack) Refine(q domain.QueryParams) *Level {
	parent := s.Deepest()
	stats := parent.Stats()
	parent.Snapshot = &stats

	scope := domain.NewSet()
	for _, id := range parent.results.Keys() {
		if parent.results.MatchCount(id) > 0 {
			scope.Add(id)
		}
	}
	q.Scope = scope.Sorted()

	l := s.newLevel(len(s.levels), q, scope, parent.ViewMode)
	s.levels = append(s.levels, l)
	s.active = l.Index
	return l
}

// TruncateTo drops every level beyond i and activates i. Its frozen
// snapshot is cleared since the level is live again.
func (s *Stack) TruncateTo(i int) {
	i = max(0, min(i, len(s.levels)-1))
	for _, l := range s.levels[i+1:] {
		l.agg.Stop()
	}
	clear(s.levels[i+1:])
	s.levels = s.levels[:i+1]
	s.active = i
	s.levels[i].Snapshot = nil
}

// JumpTo activates level i without discarding deeper levels
func (s *Stack) JumpTo(i int) bool {
	if i < 0 || i >= len(s.levels) {
		return false
	}
	s.active = i
	return true
}

// Close drops the active level and everything deeper. Level 0 cannot be closed.
func (s *Stack) Close() bool {
	if s.active == 0 {
		return false
	}
	s.TruncateTo(s.active - 1)
	return true
}

// Breadcrumbs summarizes every level
func (s *Stack) Breadcrumbs() []Breadcrumb {
	out := make([]Breadcrumb, len(s.levels))
	for i, l := range s.levels {
		out[i] = Breadcrumb{
			Index:   i,
			Pattern: l.Query.Pattern,
			Stats:   l.Summary(),
			Frozen:  l.Snapshot != nil,
			Active:  i == s.active,
		}
	}
	return out
}

// UpdateContent replaces the cached source of fileID in every level holding
// it and returns the number of levels touched
func (s *Stack) UpdateContent(fileID, content string) int {
	n := 0
	for _, l := range s.levels {
		if l.results.Has(fileID) {
			l.results = l.results.WithSnapshot(fileID, content)
			n++
		}
	}
	return n
}

// Exclude removes fileID from every level, including refinement scopes
func (s *Stack) Exclude(fileID string) {
	for _, l := range s.levels {
		l.results = l.results.Delete(fileID)
		l.expandedFiles.Remove(fileID)
		if l.scope != nil {
			l.scope.Remove(fileID)
		}
	}
}

// Snapshot returns the serializable form of the stack
func (s *Stack) Snapshot() domain.StackSnapshot {
	snap := domain.StackSnapshot{Active: s.active}
	for _, l := range s.levels {
		ls := domain.LevelSnapshot{
			Query:           l.Query,
			ExpandedFiles:   l.expandedFiles.Sorted(),
			ExpandedFolders: l.expandedFolders.Sorted(),
			ViewMode:        l.ViewMode.String(),
		}
		if l.Snapshot != nil {
			st := *l.Snapshot
			ls.Stats = &st
		}
		if l.scope != nil {
			ls.Scope = l.scope.Sorted()
		}
		snap.Levels = append(snap.Levels, ls)
	}
	return snap
}

// Restore replaces the stack with snap. Results start empty; hosts re-run
// the level queries to repopulate them.
func (s *Stack) Restore(snap domain.StackSnapshot) {
	for _, l := range s.levels {
		l.agg.Stop()
	}
	s.levels = nil
	for i, ls := range snap.Levels {
		var scope domain.Set
		if i > 0 {
			scope = domain.NewSet(ls.Scope...)
		}
		l := s.newLevel(i, ls.Query, scope, domain.ParseViewMode(ls.ViewMode))
		l.expandedFiles = domain.NewSet(ls.ExpandedFiles...)
		l.expandedFolders = domain.NewSet(ls.ExpandedFolders...)
		if ls.Stats != nil {
			st := *ls.Stats
			l.Snapshot = &st
		}
		s.levels = append(s.levels, l)
	}
	if len(s.levels) == 0 {
		s.levels = []*Level{s.newLevel(0, domain.QueryParams{}, nil, domain.ViewTree)}
	}
	s.active = max(0, min(snap.Active, len(s.levels)-1))
}
