package views

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"resultlens/internal/adapters/tui/styles"
	"resultlens/internal/application"
	"resultlens/internal/application/commands"
	"resultlens/internal/domain"
	"resultlens/internal/ports"
	"resultlens/internal/viewport"
)

// ResultsKeyMap defines key bindings for the results view
type ResultsKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Left        key.Binding
	Right       key.Binding
	Toggle      key.Binding
	Enter       key.Binding
	Query       key.Binding
	Refine      key.Binding
	CloseLevel  key.Binding
	PrevLevel   key.Binding
	NextLevel   key.Binding
	ViewMode    key.Binding
	Exclude     key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	ResetOrder  key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	HideEmpty   key.Binding
	CopyPath    key.Binding
	Replace     key.Binding
	Stop        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var ResultsKeys = ResultsKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("pgdn", "page down"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "collapse"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "expand"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "toggle/open"),
	),
	Query: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Refine: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refine"),
	),
	CloseLevel: key.NewBinding(
		key.WithKeys("backspace"),
		key.WithHelp("⌫", "close level"),
	),
	PrevLevel: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "previous level"),
	),
	NextLevel: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next level"),
	),
	ViewMode: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "tree/flat"),
	),
	Exclude: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "exclude file"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K"),
		key.WithHelp("K", "move up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J"),
		key.WithHelp("J", "move down"),
	),
	ResetOrder: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "reset order"),
	),
	ExpandAll: key.NewBinding(
		key.WithKeys("+"),
		key.WithHelp("+", "expand all"),
	),
	CollapseAll: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "collapse all"),
	),
	HideEmpty: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "hide empty"),
	),
	CopyPath: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy path"),
	),
	Replace: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "replace"),
	),
	Stop: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "stop"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// chromeLines is the height taken by everything around the list
const chromeLines = 9

// ResultsModel renders the active level as a virtualized list with pinned
// folder and file headers
type ResultsModel struct {
	ViewState
	session *application.Session
	engine  ports.MatchEngine
	store   ports.StateStore

	cursor    int
	cursorKey string
	scrollTop int

	tracker viewport.Tracker
	lines   map[string][]string // rendered rows of the visible window
	spinner spinner.Model
}

// NewResultsModel creates a results view. store may be nil.
func NewResultsModel(session *application.Session, engine ports.MatchEngine, store ports.StateStore) *ResultsModel {
	m := &ResultsModel{
		session: session,
		engine:  engine,
		store:   store,
		lines:   map[string][]string{},
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.tracker.OnRowEnter = func(k string, row int) {
		m.lines[k] = m.renderRow(m.session.View().Rows[row])
	}
	m.tracker.OnRowLeave = func(k string) {
		delete(m.lines, k)
	}
	session.Subscribe(func(c application.Change) {
		if c != application.ChangeStatus {
			m.invalidate()
		}
	})
	return m
}

func (m *ResultsModel) invalidate() {
	m.tracker.Reset()
	clear(m.lines)
}

// Init starts the spinner
func (m *ResultsModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSize updates the view dimensions
func (m *ResultsModel) SetSize(width, height int) {
	m.ViewState.SetSize(width, height)
	m.invalidate()
}

// Cursor returns the selected row index
func (m *ResultsModel) Cursor() int { return m.cursor }

// ScrollTop returns the scroll offset of the list
func (m *ResultsModel) ScrollTop() int { return m.scrollTop }

// Selected returns the selected row
func (m *ResultsModel) Selected() (domain.FlatRow, bool) {
	rows := m.session.View().Rows
	if m.cursor < 0 || m.cursor >= len(rows) {
		return domain.FlatRow{}, false
	}
	return rows[m.cursor], true
}

func (m *ResultsModel) listHeight() int {
	return max(m.Height-chromeLines, 1)
}

func (m *ResultsModel) listWidth() int {
	return max(m.Width-4, 10)
}

func (m *ResultsModel) headerHeight() int {
	return max(m.session.Options().Metrics.RowHeight, 1)
}

// Update handles messages for the results view
func (m *ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		m.ClearMessage()
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *ResultsModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	ctx := context.Background()
	rows := m.session.View().Rows
	row, hasRow := m.Selected()

	switch {
	case key.Matches(msg, ResultsKeys.Quit):
		return emit(QuitMsg{})
	case key.Matches(msg, ResultsKeys.Help):
		return emit(SwitchToHelpMsg{})
	case key.Matches(msg, ResultsKeys.Query):
		return emit(SwitchToQueryMsg{Mode: ModeSearch})
	case key.Matches(msg, ResultsKeys.Refine):
		return emit(SwitchToQueryMsg{Mode: ModeRefine})
	case key.Matches(msg, ResultsKeys.Replace):
		return emit(SwitchToQueryMsg{Mode: ModeReplace})
	case key.Matches(msg, ResultsKeys.Stop):
		return emit(StopSearchMsg{})

	case key.Matches(msg, ResultsKeys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, ResultsKeys.Down):
		m.moveCursor(1)
	case key.Matches(msg, ResultsKeys.PageUp):
		m.moveCursor(-m.listHeight())
	case key.Matches(msg, ResultsKeys.PageDown):
		m.moveCursor(m.listHeight())
	case key.Matches(msg, ResultsKeys.Top):
		m.moveCursor(-len(rows))
	case key.Matches(msg, ResultsKeys.Bottom):
		m.moveCursor(len(rows))

	case key.Matches(msg, ResultsKeys.Enter):
		if !hasRow {
			return nil
		}
		if _, ok := row.Node.(*domain.MatchRow); ok {
			return emit(OpenRowMsg{Row: row})
		}
		m.toggle(ctx, row)
	case key.Matches(msg, ResultsKeys.Toggle):
		if hasRow {
			m.toggle(ctx, row)
		}
	case key.Matches(msg, ResultsKeys.Right):
		if hasRow && !m.expanded(row) {
			m.toggle(ctx, row)
		}
	case key.Matches(msg, ResultsKeys.Left):
		if !hasRow {
			return nil
		}
		if row.IsHeader() && m.expanded(row) {
			m.toggle(ctx, row)
		} else if row.Parent >= 0 {
			m.selectRow(row.Parent)
		}

	case key.Matches(msg, ResultsKeys.ViewMode):
		mode := domain.ViewFlat
		if m.session.Active().ViewMode == domain.ViewFlat {
			mode = domain.ViewTree
		}
		m.Report(commands.NewSetViewModeCommand(m.session, mode).Execute(ctx), "")
	case key.Matches(msg, ResultsKeys.HideEmpty):
		m.session.SetHideEmpty(!m.session.Options().HideEmpty)
	case key.Matches(msg, ResultsKeys.ExpandAll):
		m.session.SetExpanded(true)
	case key.Matches(msg, ResultsKeys.CollapseAll):
		m.session.SetExpanded(false)

	case key.Matches(msg, ResultsKeys.Exclude):
		if f, ok := m.session.RowFile(row); hasRow && ok {
			err := commands.NewExcludeFileCommand(m.engine, m.session, f.FileID).Execute(ctx)
			m.Report(err, "Excluded "+f.RelPath)
		}
	case key.Matches(msg, ResultsKeys.MoveUp), key.Matches(msg, ResultsKeys.MoveDown):
		if !hasRow || !row.IsHeader() {
			return nil
		}
		delta := 1
		if key.Matches(msg, ResultsKeys.MoveUp) {
			delta = -1
		}
		err := commands.NewMoveSiblingCommand(m.session, m.store, domain.NodePath(row.Node), delta).Execute(ctx)
		m.Report(err, "")
	case key.Matches(msg, ResultsKeys.ResetOrder):
		m.Report(commands.NewResetOrderCommand(m.session, m.store).Execute(ctx), "Order reset")

	case key.Matches(msg, ResultsKeys.CloseLevel):
		m.Report(commands.NewCloseLevelCommand(m.session).Execute(ctx), "")
	case key.Matches(msg, ResultsKeys.PrevLevel):
		m.Report(commands.NewJumpLevelCommand(m.session, m.session.Stack().Active()-1).Execute(ctx), "")
	case key.Matches(msg, ResultsKeys.NextLevel):
		m.Report(commands.NewJumpLevelCommand(m.session, m.session.Stack().Active()+1).Execute(ctx), "")

	case key.Matches(msg, ResultsKeys.CopyPath):
		if !hasRow {
			return nil
		}
		p := m.rowPath(row)
		if err := clipboard.WriteAll(p); err != nil {
			m.Warn("Copy failed: %v", err)
		} else {
			m.Notify("Copied %s", p)
		}
	}
	m.Sync()
	return nil
}

func (m *ResultsModel) expanded(row domain.FlatRow) bool {
	l := m.session.Active()
	switch n := row.Node.(type) {
	case *domain.Folder:
		return l.ExpandedFolders().Has(n.RelPath)
	case *domain.File:
		return l.ExpandedFiles().Has(n.FileID)
	}
	return false
}

func (m *ResultsModel) toggle(ctx context.Context, row domain.FlatRow) {
	if _, err := commands.NewToggleCommand(m.session, row).Execute(ctx); err != nil && !application.IsRejected(err) {
		m.Fail(err)
	}
}

func (m *ResultsModel) rowPath(row domain.FlatRow) string {
	if f, ok := m.session.RowFile(row); ok {
		return f.AbsolutePath
	}
	return path.Join(m.session.Root(), domain.NodePath(row.Node))
}

func (m *ResultsModel) selectRow(i int) {
	rows := m.session.View().Rows
	if len(rows) == 0 {
		m.cursor, m.cursorKey = 0, ""
		return
	}
	m.cursor = min(max(i, 0), len(rows)-1)
	m.cursorKey = rows[m.cursor].Node.Key()
}

func (m *ResultsModel) moveCursor(delta int) {
	m.selectRow(m.cursor + delta)
}

// Sync keeps the cursor on the same node after the rows changed and
// scrolls it into view below the pinned headers
func (m *ResultsModel) Sync() {
	view := m.session.View()
	rows := view.Rows
	idx := -1
	if m.cursorKey != "" {
		for i, r := range rows {
			if r.Node.Key() == m.cursorKey {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		idx = m.cursor
	}
	m.selectRow(idx)

	l := view.Layout
	vh := m.listHeight()
	H := m.headerHeight()
	m.scrollTop = l.ClampScroll(m.scrollTop, vh)
	if l.Len() == 0 {
		return
	}
	// the pinned height depends on the offset, so settle both together
	for range 4 {
		reserved := viewport.StickyHeight(viewport.ResolveSticky(l, m.scrollTop, vh, H), H)
		next := l.ScrollToReveal(m.cursor, m.scrollTop, vh, reserved)
		if next == m.scrollTop {
			break
		}
		m.scrollTop = next
	}
}

// View renders the results
func (m *ResultsModel) View() string {
	vb := NewViewBuilder()
	vb.Line(m.renderHeader())
	vb.Line(m.renderBreadcrumbs())
	vb.BlankLine()
	for _, line := range m.renderList() {
		vb.Line(line)
	}
	vb.BlankLine()
	vb.Line(m.renderStatus())
	vb.Line(RenderMessage(m.Message, m.MessageErr))
	vb.Help(ResultsKeys.Query, ResultsKeys.Refine, ResultsKeys.Enter, ResultsKeys.ViewMode, ResultsKeys.Help, ResultsKeys.Quit)
	return vb.String()
}

func (m *ResultsModel) renderHeader() string {
	root := m.session.Root()
	if root == "" {
		root = "(no root)"
	}
	return styles.Title.Render("resultlens") + " " + RenderMuted(truncate(root, m.listWidth()-12))
}

func (m *ResultsModel) renderBreadcrumbs() string {
	var parts []string
	for _, c := range m.session.Stack().Breadcrumbs() {
		pattern := c.Pattern
		if pattern == "" {
			pattern = "…"
		}
		text := fmt.Sprintf("%s (%d in %d)", pattern, c.Stats.NumMatches, c.Stats.NumFilesWithMatches)
		style := lipgloss.NewStyle().Foreground(styles.LevelColor(c.Index))
		if c.Active {
			style = style.Bold(true).Underline(true)
		}
		parts = append(parts, style.Render(text))
	}
	return strings.Join(parts, styles.MutedText.Render(" › "))
}

func (m *ResultsModel) renderStatus() string {
	st := m.session.Status()
	var b strings.Builder
	if st.Running {
		b.WriteString(m.spinner.View())
		fmt.Fprintf(&b, " searching %d/%d", st.Completed, st.Total)
	} else {
		fmt.Fprintf(&b, "%d/%d files", st.Completed, st.Total)
	}
	stats := m.session.Active().Stats()
	fmt.Fprintf(&b, " · %d matches in %d files", stats.NumMatches, stats.NumFilesWithMatches)
	if st.NumFilesWithErrors > 0 {
		b.WriteString(" · ")
		b.WriteString(styles.ErrorMsg.Render(strconv.Itoa(st.NumFilesWithErrors) + " errors"))
	}
	if p := m.session.Pending(); p.Files > 0 {
		fmt.Fprintf(&b, " · %d pending", p.Files)
	}
	if r := m.session.Replacement(); r != nil {
		fmt.Fprintf(&b, " · replaced %d in %d files", r.TotalReplacements, r.TotalFilesChanged)
	}
	return styles.StatusText.Render(b.String())
}

// renderList paints the visible rows, then the pinned headers over them
func (m *ResultsModel) renderList() []string {
	view := m.session.View()
	l := view.Layout
	vh := m.listHeight()
	out := make([]string, vh)
	if l.Len() == 0 {
		if m.session.Active().Query.Pattern == "" {
			out[0] = RenderMuted("Press / to search")
		} else if !m.session.Status().Running {
			out[0] = RenderMuted("No results")
		}
		return out
	}

	m.scrollTop = l.ClampScroll(m.scrollTop, vh)
	w := l.VisibleWindow(m.scrollTop, vh, m.session.Options().Overscan)
	m.tracker.Update(l, w)

	filled := make([]bool, vh)
	H := m.headerHeight()
	items := viewport.ResolveSticky(l, m.scrollTop, vh, H)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ZIndex > items[j].ZIndex })
	for _, it := range items {
		lines := m.rowLines(it.Row, view.Rows[it.Row])
		for k := 0; k < H && k < len(lines); k++ {
			y := it.Top + k
			if y < 0 || y >= vh || filled[y] {
				continue
			}
			out[y] = m.paint(it.Row, lines[k], styles.Sticky)
			filled[y] = true
		}
	}

	for i := w.Start; i <= w.End; i++ {
		top := l.OffsetOf(i) - m.scrollTop
		for k, line := range m.rowLines(i, view.Rows[i]) {
			y := top + k
			if y < 0 || y >= vh || filled[y] {
				continue
			}
			out[y] = m.paint(i, line, rowStyle(view.Rows[i]))
			filled[y] = true
		}
	}
	return out
}

func (m *ResultsModel) paint(i int, line string, base lipgloss.Style) string {
	if i == m.cursor {
		return styles.NodeSelected.Render(line)
	}
	return base.Render(line)
}

func rowStyle(row domain.FlatRow) lipgloss.Style {
	switch n := row.Node.(type) {
	case *domain.Folder:
		return styles.NodeFolder
	case *domain.File:
		if n.Err() != nil {
			return styles.ErrorMsg
		}
		if !n.HasMatches() {
			return styles.NodeEmpty
		}
		return styles.NodeFile
	}
	return lipgloss.NewStyle()
}

func (m *ResultsModel) rowLines(i int, row domain.FlatRow) []string {
	k := row.Node.Key()
	if lines, ok := m.lines[k]; ok {
		return lines
	}
	lines := m.renderRow(row)
	m.lines[k] = lines
	return lines
}

// renderRow returns one plain line per unit of row height
func (m *ResultsModel) renderRow(row domain.FlatRow) []string {
	width := m.listWidth()
	indent := strings.Repeat("  ", row.Depth)
	var first, hl string
	var from int
	var extra []string

	switch n := row.Node.(type) {
	case *domain.Folder:
		first = indent + m.arrow(row) + n.Name + "/" + counts(n.Stats)
	case *domain.File:
		name := n.Name
		if m.session.Active().ViewMode == domain.ViewFlat {
			name = n.RelPath
		}
		first = indent + m.arrow(row) + name
		if e := n.Err(); e != nil {
			first += "  ! " + e.Error()
		} else {
			first += counts(n.Stats)
		}
	case *domain.MatchRow:
		lines := strings.Split(n.Line, "\n")
		prefix := indent + styles.TreeLeaf + strconv.Itoa(n.LineNo) + ": "
		first = prefix + strings.TrimLeft(lines[0], " \t")
		hl, from = n.Text, len(prefix)
		pad := strings.Repeat(" ", runewidth.StringWidth(prefix))
		for _, s := range lines[1:] {
			extra = append(extra, pad+strings.TrimLeft(s, " \t"))
		}
	}

	out := []string{highlight(truncate(first, width), hl, from)}
	for _, s := range extra {
		out = append(out, truncate(s, width))
	}
	for len(out) < row.Height {
		out = append(out, "")
	}
	return out[:max(row.Height, 1)]
}

func (m *ResultsModel) arrow(row domain.FlatRow) string {
	if f, ok := row.Node.(*domain.File); ok && !f.HasMatches() {
		return styles.TreeLeaf
	}
	if m.expanded(row) {
		return styles.TreeExpanded
	}
	return styles.TreeCollapsed
}

func counts(s domain.Stats) string {
	if s.NumMatches == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d)", s.NumMatches)
}

// highlight marks the first occurrence of text on a single-line row
func highlight(line, text string, from int) string {
	if text == "" || strings.Contains(text, "\n") || from > len(line) {
		return line
	}
	i := strings.Index(line[from:], text)
	if i < 0 {
		return line
	}
	i += from
	return line[:i] + styles.SearchMatch.Render(text) + line[i+len(text):]
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// QuitMsg asks the app to persist state and quit
type QuitMsg struct{}

// SwitchToResultsMsg returns to the results view
type SwitchToResultsMsg struct{}

// SwitchToHelpMsg opens the help view
type SwitchToHelpMsg struct{}

// SwitchToQueryMsg opens the query input
type SwitchToQueryMsg struct {
	Mode QueryMode
}

// StopSearchMsg stops every running search
type StopSearchMsg struct{}

// OpenRowMsg opens the file of a match row in the editor
type OpenRowMsg struct {
	Row domain.FlatRow
}
