package application

import (
	"errors"
	"log"
	"strconv"

	"resultlens/internal/domain"
	"resultlens/internal/ingest"
	"resultlens/internal/ports"
	"resultlens/internal/refinement"
	"resultlens/internal/viewport"
)

// Session is the shared store every host injects into its components.
// It is not safe for concurrent use: hosts call it from their single
// execution context only (bubbletea Update, loop.Loop, or a test).
type Session struct {
	opts  Options
	stack *refinement.Stack
	order domain.OrderOverride

	runs    map[int]*refinement.Level
	nextRun int
	current int // run whose status is shown

	status      domain.StatusUpdate
	replacement *domain.ReplacementComplete

	view      View
	dirty     bool
	listeners []func(Change)
}

// NewSession creates a session with an empty root level
func NewSession(sched ports.Scheduler, opts Options) *Session {
	if opts.Metrics.RowHeight <= 0 {
		opts.Metrics = domain.DefaultMetrics()
	}
	s := &Session{
		opts:  opts,
		stack: refinement.New(sched, opts.Ingest),
		order: domain.OrderOverride{},
		runs:  map[int]*refinement.Level{},
		dirty: true,
	}
	s.stack.ActiveLevel().SetViewMode(opts.ViewMode)
	s.stack.OnFlush(func(l *refinement.Level, r ingest.FlushReport) {
		if len(r.Collapsed) > 0 {
			log.Printf("ingest: auto-collapsed %d files", len(r.Collapsed))
		}
		if l == s.stack.ActiveLevel() {
			s.invalidate(ChangeResults)
		}
	})
	return s
}

// Subscribe registers a listener for session changes
func (s *Session) Subscribe(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Session) invalidate(c Change) {
	if c != ChangeStatus {
		s.dirty = true
	}
	for _, fn := range s.listeners {
		fn(c)
	}
}

// Root returns the search root
func (s *Session) Root() string { return s.opts.Root }

// SetRoot changes the search root
func (s *Session) SetRoot(root string) {
	s.opts.Root = root
	s.invalidate(ChangeStructure)
}

// Options returns the current options
func (s *Session) Options() Options { return s.opts }

// Stack exposes the refinement stack
func (s *Session) Stack() *refinement.Stack { return s.stack }

// Active returns the active level
func (s *Session) Active() *refinement.Level { return s.stack.ActiveLevel() }

// Order returns the custom order
func (s *Session) Order() domain.OrderOverride { return s.order }

// SetOrder replaces the custom order, e.g. after loading it from a store
func (s *Session) SetOrder(o domain.OrderOverride) {
	if o == nil {
		o = domain.OrderOverride{}
	}
	s.order = o
	s.invalidate(ChangeStructure)
}

// Status returns the latest engine progress of the current run
func (s *Session) Status() domain.StatusUpdate { return s.status }

// Replacement returns the summary of the last replace run, if any
func (s *Session) Replacement() *domain.ReplacementComplete { return s.replacement }

// Pending returns the buffered state of the active level
func (s *Session) Pending() ingest.Pending {
	return s.Active().Aggregator().Pending()
}

// BeginSearch points the active level at q and registers a run for it.
// Level 0 runs unrestricted; deeper levels keep their refinement scope.
// Levels below the active one are discarded since their scope came from
// the results being replaced.
func (s *Session) BeginSearch(q domain.QueryParams) (SearchRun, error) {
	if err := ValidateQuery(q); err != nil {
		return SearchRun{}, err
	}
	if s.opts.Root == "" {
		return SearchRun{}, ErrNoRoot
	}
	l := s.Active()
	if l != s.stack.Deepest() || l.Snapshot != nil {
		s.stack.TruncateTo(l.Index)
		s.forgetDiscardedRuns()
		s.invalidate(ChangeStructure)
	}
	if l.Restricted() {
		q.Scope = l.Scope().Sorted()
	} else {
		q.Scope = nil
	}
	s.stopRuns(l)
	l.Query = q
	return s.register(l), nil
}

func (s *Session) register(l *refinement.Level) SearchRun {
	s.nextRun++
	s.runs[s.nextRun] = l
	s.current = s.nextRun
	s.status = domain.StatusUpdate{Running: true}
	s.replacement = nil
	s.invalidate(ChangeStatus)
	return SearchRun{ID: s.nextRun, Level: l.Index, Root: s.opts.Root, Query: l.Query}
}

// Refine pushes a level restricted to the deepest level's matched files and
// registers a run for it
func (s *Session) Refine(q domain.QueryParams) (SearchRun, error) {
	if err := ValidateQuery(q); err != nil {
		return SearchRun{}, err
	}
	if s.stack.Deepest().Stats().NumFilesWithMatches == 0 {
		return SearchRun{}, &StructuralError{Op: "refine", Target: q.Pattern, Err: ErrNotFound}
	}
	parent := s.stack.Deepest()
	parent.Aggregator().Drain()
	s.stopRuns(parent)
	l := s.stack.Refine(q)
	s.invalidate(ChangeStructure)
	return s.register(l), nil
}

// Dispatch applies a message that is not tied to a run
func (s *Session) Dispatch(msg domain.Message) {
	s.DispatchRun(s.current, msg)
}

// DispatchRun applies a message produced by run. Messages of runs whose
// level was discarded are dropped.
func (s *Session) DispatchRun(run int, msg domain.Message) {
	switch m := msg.(type) {
	case domain.FileContentUpdated:
		if s.stack.UpdateContent(m.FileID, m.Content) > 0 {
			s.invalidate(ChangeResults)
		}
		return
	case domain.ReplacementComplete:
		s.replacement = &m
		s.invalidate(ChangeStatus)
		return
	case domain.InitialData:
		if m.RootPath != "" {
			s.opts.Root = m.RootPath
		}
	}

	l, ok := s.runs[run]
	if !ok || !s.holds(l) {
		return
	}
	switch m := msg.(type) {
	case domain.InitialData:
		l.Query = m.Query
		s.invalidate(ChangeStructure)
	case domain.StatusUpdate:
		if run == s.current {
			s.status = m
			s.invalidate(ChangeStatus)
		}
		if !m.Running {
			delete(s.runs, run)
		}
	case domain.MatchBatch:
		l.Aggregator().Ingest(m.Events, m.IsNewSearch)
	case domain.ClearResults:
		l.Aggregator().Clear()
		if l == s.Active() {
			s.invalidate(ChangeResults)
		}
	}
}

func (s *Session) holds(l *refinement.Level) bool {
	got, ok := s.stack.Level(l.Index)
	return ok && got == l
}

// StopIngest halts ingestion of the active level and forgets its runs
func (s *Session) StopIngest() {
	s.stopRuns(s.Active())
	s.status.Running = false
	s.invalidate(ChangeStatus)
}

func (s *Session) stopRuns(l *refinement.Level) {
	l.Aggregator().Stop()
	for id, rl := range s.runs {
		if rl == l {
			delete(s.runs, id)
		}
	}
}

// Flush merges everything buffered in the active level right away
func (s *Session) Flush() {
	s.Active().Aggregator().Drain()
}

// View rebuilds the tree, rows and layout of the active level when stale
func (s *Session) View() View {
	if !s.dirty && s.view.Layout != nil {
		return s.view
	}
	l := s.Active()
	tree := domain.BuildTree(l.Results(), s.opts.Root, s.order)
	if s.opts.HideEmpty {
		tree = domain.Prune(tree, domain.HasMatches)
	}
	rows := domain.Flatten(tree, l.ExpandedFolders(), l.ExpandedFiles(), domain.FlattenOptions{
		Mode:    l.ViewMode,
		Metrics: s.opts.Metrics,
		Order:   s.order,
	})
	s.view = View{Tree: tree, Rows: rows, Layout: viewport.NewLayout(rows)}
	s.dirty = false
	return s.view
}

// ToggleFolder flips the expansion of a folder in the active level
func (s *Session) ToggleFolder(relPath string) bool {
	open := s.Active().ExpandedFolders().Toggle(relPath)
	s.invalidate(ChangeStructure)
	return open
}

// ToggleFile flips the expansion of a file in the active level
func (s *Session) ToggleFile(fileID string) bool {
	open := s.Active().ExpandedFiles().Toggle(fileID)
	s.invalidate(ChangeStructure)
	return open
}

// SetExpanded expands or collapses every folder and file of the active level
func (s *Session) SetExpanded(open bool) {
	l := s.Active()
	folders, files := l.ExpandedFolders(), l.ExpandedFiles()
	clear(folders)
	clear(files)
	if open {
		domain.Walk(s.View().Tree, func(n domain.Node, _ int) bool {
			switch v := n.(type) {
			case *domain.Folder:
				folders.Add(v.RelPath)
			case *domain.File:
				files.Add(v.FileID)
			case *domain.MatchRow:
			}
			return true
		})
	}
	s.invalidate(ChangeStructure)
}

// SetViewMode switches the active level between tree and flat rendering
func (s *Session) SetViewMode(m domain.ViewMode) {
	s.Active().SetViewMode(m)
	s.invalidate(ChangeStructure)
}

// SetHideEmpty toggles the filter hiding files without matches
func (s *Session) SetHideEmpty(hide bool) {
	s.opts.HideEmpty = hide
	s.invalidate(ChangeStructure)
}

// Exclude removes a file from every level
func (s *Session) Exclude(fileID string) error {
	found := false
	for _, l := range s.stack.Levels() {
		found = found || l.Results().Has(fileID)
	}
	if !found {
		return &StructuralError{Op: "exclude", Target: fileID, Err: ErrNotFound}
	}
	s.stack.Exclude(fileID)
	s.invalidate(ChangeResults)
	return nil
}

// Reorder moves source before or after target among its siblings. Moves
// across parents or kinds are rejected and leave the order unchanged.
func (s *Session) Reorder(source, target string, place domain.Placement) error {
	next, err := domain.Reorder(s.View().Tree, s.order, source, target, place)
	if err != nil {
		return &StructuralError{Op: "reorder", Target: source, Err: err}
	}
	s.order = next
	s.invalidate(ChangeStructure)
	return nil
}

// ResetOrder drops every custom rank
func (s *Session) ResetOrder() {
	s.order = domain.OrderOverride{}
	s.invalidate(ChangeStructure)
}

// JumpTo activates level i without discarding deeper levels
func (s *Session) JumpTo(i int) error {
	if !s.stack.JumpTo(i) {
		return &StructuralError{Op: "jump to level", Target: strconv.Itoa(i), Err: ErrNotFound}
	}
	s.invalidate(ChangeStructure)
	return nil
}

// CloseLevel discards the active level and everything deeper
func (s *Session) CloseLevel() error {
	if !s.stack.Close() {
		return &StructuralError{Op: "close", Target: "root level"}
	}
	s.forgetDiscardedRuns()
	s.invalidate(ChangeStructure)
	return nil
}

// TruncateTo discards every level beyond i
func (s *Session) TruncateTo(i int) {
	s.stack.TruncateTo(i)
	s.forgetDiscardedRuns()
	s.invalidate(ChangeStructure)
}

func (s *Session) forgetDiscardedRuns() {
	for id, l := range s.runs {
		if !s.holds(l) {
			delete(s.runs, id)
		}
	}
}

// Snapshot returns the persistable stack state
func (s *Session) Snapshot() domain.StackSnapshot {
	return s.stack.Snapshot()
}

// Restore replaces the stack and registers one run per level with a query,
// so the host can repopulate the results
func (s *Session) Restore(snap domain.StackSnapshot) []SearchRun {
	for id := range s.runs {
		delete(s.runs, id)
	}
	s.stack.Restore(snap)
	s.invalidate(ChangeStructure)

	var runs []SearchRun
	for _, l := range s.stack.Levels() {
		if err := ValidateQuery(l.Query); err != nil {
			continue
		}
		if l.Restricted() {
			l.Query.Scope = l.Scope().Sorted()
		}
		runs = append(runs, s.register(l))
	}
	return runs
}

// RowFile returns the file a row belongs to, for file and match rows
func (s *Session) RowFile(row domain.FlatRow) (*domain.File, bool) {
	switch n := row.Node.(type) {
	case *domain.File:
		return n, true
	case *domain.MatchRow:
		rows := s.View().Rows
		for p := row.Parent; p >= 0 && p < len(rows); p = rows[p].Parent {
			if f, ok := rows[p].Node.(*domain.File); ok {
				return f, true
			}
		}
	case *domain.Folder:
	}
	return nil, false
}

// IsRejected reports whether err came from a rejected structural command
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
