package tui

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"resultlens/internal/adapters/tui/styles"
	"resultlens/internal/adapters/tui/views"
	"resultlens/internal/application"
	"resultlens/internal/application/commands"
	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

// ViewState represents the current view
type ViewState int

const (
	ViewResults ViewState = iota
	ViewQuery
	ViewConfirm
	ViewHelp
)

// Deps are the collaborators of the App. Store, Editor and Watcher may be nil.
type Deps struct {
	Session *application.Session
	Sched   *Scheduler
	Engine  ports.MatchEngine
	Store   ports.StateStore
	Editor  ports.EditorOpener
	Watcher ports.ContentWatcher
	// Initial runs a search on start when its pattern is set
	Initial domain.QueryParams
}

// App is the main TUI application model
type App struct {
	session *application.Session
	sched   *Scheduler
	engine  ports.MatchEngine
	store   ports.StateStore
	editor  ports.EditorOpener
	watcher ports.ContentWatcher
	initial domain.QueryParams

	ctx    context.Context
	cancel context.CancelFunc
	gen    atomic.Int64 // bumped whenever a new batch of runs starts

	state   ViewState
	results *views.ResultsModel
	query   *views.QueryModel
	confirm *views.ReplaceConfirmModel
	help    *views.HelpModel

	watchDirty bool
}

// runMsg carries an engine message of one run onto Update
type runMsg struct {
	run int
	msg domain.Message
}

// watchMsg carries a message that is not tied to a run
type watchMsg struct {
	msg domain.Message
}

type searchDoneMsg struct{ err error }

type replaceDoneMsg struct{ err error }

type editorFinishedMsg struct{ err error }

// NewApp creates a new TUI application
func NewApp(d Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		session: d.Session,
		sched:   d.Sched,
		engine:  d.Engine,
		store:   d.Store,
		editor:  d.Editor,
		watcher: d.Watcher,
		initial: d.Initial,
		ctx:     ctx,
		cancel:  cancel,
		state:   ViewResults,
		results: views.NewResultsModel(d.Session, d.Engine, d.Store),
		query:   views.NewQueryModel(),
		confirm: views.NewReplaceConfirmModel(),
		help:    views.NewHelpModel(),
	}
	d.Session.Subscribe(func(c application.Change) {
		if c != application.ChangeStatus {
			a.watchDirty = true
		}
	})
	return a
}

// Emit posts a message that is not tied to a run, such as watcher updates
func (a *App) Emit(msg domain.Message) {
	a.sched.Send(watchMsg{msg: msg})
}

func (a *App) deliver(run int, msg domain.Message) {
	a.sched.Send(runMsg{run: run, msg: msg})
}

// Init restores the saved stack and starts the initial search
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.results.Init()}
	var runs []application.SearchRun
	if a.store != nil {
		restored, err := commands.NewLoadStateCommand(a.session, a.store).Execute(a.ctx)
		if err != nil {
			log.Printf("tui: restore: %v", err)
		}
		runs = restored
	}
	if a.initial.Pattern != "" {
		a.session.TruncateTo(0)
		run, err := commands.NewBeginSearchCommand(a.session, a.initial).Execute(a.ctx)
		if err != nil {
			a.results.Fail(err)
		} else {
			runs = []application.SearchRun{run}
		}
	}
	cmds = append(cmds, a.startRuns(runs...))
	return tea.Batch(cmds...)
}

// startRuns executes runs one after the other off the Update goroutine.
// A later call abandons the remaining runs of an earlier one.
func (a *App) startRuns(runs ...application.SearchRun) tea.Cmd {
	if len(runs) == 0 {
		return nil
	}
	gen := a.gen.Add(1)
	return func() tea.Msg {
		for _, run := range runs {
			if a.gen.Load() != gen {
				return searchDoneMsg{}
			}
			if err := commands.NewSearchCommand(a.engine, run, a.deliver).Execute(a.ctx); err != nil {
				return searchDoneMsg{err: err}
			}
		}
		return searchDoneMsg{}
	}
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.sched.Handle(msg) {
		return a, a.afterChange()
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w, h := msg.Width, msg.Height
		a.results.SetSize(w, h)
		a.query.SetSize(w, h)
		a.confirm.SetSize(w, h)
		a.help.SetSize(w, h)
		a.results.Sync()
		return a, nil

	case spinner.TickMsg:
		_, cmd := a.results.Update(msg)
		return a, cmd

	case runMsg:
		a.session.DispatchRun(msg.run, msg.msg)
		return a, a.afterChange()

	case watchMsg:
		a.session.Dispatch(msg.msg)
		return a, a.afterChange()

	case searchDoneMsg:
		if msg.err != nil {
			log.Printf("tui: %v", msg.err)
			a.results.Fail(msg.err)
		}
		return a, nil

	case replaceDoneMsg:
		if msg.err != nil {
			a.results.Fail(msg.err)
			return a, nil
		}
		if r := a.session.Replacement(); r != nil {
			a.results.Notify("Replaced %d matches in %d files", r.TotalReplacements, r.TotalFilesChanged)
		}
		// Rerun the active level so the results reflect the rewritten files
		q := a.session.Active().Query
		q.Replace = ""
		return a, a.search(views.ModeSearch, q)

	case editorFinishedMsg:
		if msg.err != nil {
			a.results.Warn("Editor error: %v", msg.err)
		}
		return a, nil

	// View switching messages
	case views.SwitchToResultsMsg:
		a.state = ViewResults
		a.results.Sync()
		return a, nil

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToQueryMsg:
		q := a.session.Active().Query
		// Refine always narrows the deepest level, whichever one is active
		if msg.Mode == views.ModeRefine && a.session.Stack().Deepest().Stats().NumFilesWithMatches == 0 {
			a.results.Warn("Nothing to refine")
			return a, nil
		}
		a.query.Reset(msg.Mode, q)
		a.state = ViewQuery
		return a, a.query.Init()

	case views.QuerySubmitMsg:
		if msg.Mode == views.ModeReplace {
			targets := commands.ReplaceTargets(a.session)
			a.confirm.SetTarget(msg.Query, targets, a.session.Active().Stats().NumMatches)
			a.state = ViewConfirm
			return a, nil
		}
		a.state = ViewResults
		return a, a.search(msg.Mode, msg.Query)

	case views.ReplaceConfirmedMsg:
		a.state = ViewResults
		return a, a.replace(msg.Query, msg.FileIDs)

	case views.StopSearchMsg:
		a.gen.Add(1)
		_ = commands.NewStopSearchCommand(a.engine, a.session).Execute(a.ctx)
		a.results.Notify("Stopped")
		return a, nil

	case views.OpenRowMsg:
		return a, a.openEditor(msg.Row)

	case views.QuitMsg:
		a.shutdown()
		return a, tea.Quit
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewResults:
		_, cmd = a.results.Update(msg)
		a.syncWatcher()
	case ViewQuery:
		_, cmd = a.query.Update(msg)
	case ViewConfirm:
		_, cmd = a.confirm.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}

	return a, cmd
}

func (a *App) search(mode views.QueryMode, q domain.QueryParams) tea.Cmd {
	var (
		run application.SearchRun
		err error
	)
	if mode == views.ModeRefine {
		run, err = commands.NewRefineCommand(a.session, q).Execute(a.ctx)
	} else {
		run, err = commands.NewBeginSearchCommand(a.session, q).Execute(a.ctx)
	}
	if err != nil {
		a.results.Fail(err)
		return nil
	}
	a.results.Sync()
	return a.startRuns(run)
}

func (a *App) replace(q domain.QueryParams, fileIDs []string) tea.Cmd {
	root := a.session.Root()
	return func() tea.Msg {
		err := commands.NewReplaceCommand(a.engine, root, q, fileIDs, a.Emit).Execute(a.ctx)
		return replaceDoneMsg{err: err}
	}
}

func (a *App) openEditor(row domain.FlatRow) tea.Cmd {
	if a.editor == nil {
		return nil
	}

	cmd, err := commands.NewOpenRowCommand(a.editor, a.session, row).Command()
	if err != nil {
		return func() tea.Msg {
			return editorFinishedMsg{err: err}
		}
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

func (a *App) afterChange() tea.Cmd {
	a.results.Sync()
	a.syncWatcher()
	return nil
}

// syncWatcher points the watcher at the files of the active level
func (a *App) syncWatcher() {
	if a.watcher == nil || !a.watchDirty {
		return
	}
	a.watchDirty = false
	var ids []string
	for _, f := range domain.Files(a.session.View().Tree) {
		if f.HasMatches() {
			ids = append(ids, f.FileID)
		}
	}
	if err := a.watcher.Watch(ids); err != nil {
		log.Printf("tui: watch: %v", err)
	}
}

func (a *App) shutdown() {
	a.gen.Add(1)
	a.engine.StopSearch()
	a.session.StopIngest()
	if a.store != nil {
		if err := commands.NewSaveStateCommand(a.session, a.store).Execute(a.ctx); err != nil && !errors.Is(err, application.ErrNoRoot) {
			log.Printf("tui: save state: %v", err)
		}
	}
	a.cancel()
}

// View renders the current view
func (a *App) View() string {
	var body string
	switch a.state {
	case ViewQuery:
		body = a.query.View()
	case ViewConfirm:
		body = a.confirm.View()
	case ViewHelp:
		body = a.help.View()
	default:
		body = a.results.View()
	}
	return styles.App.Render(body)
}
