package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"resultlens/internal/adapters/tui/styles"
	"resultlens/internal/application"
	"resultlens/internal/domain"
)

// QueryMode selects what a submitted query does
type QueryMode int

const (
	ModeSearch QueryMode = iota
	ModeRefine
	ModeReplace
)

func (m QueryMode) String() string {
	switch m {
	case ModeRefine:
		return "Refine"
	case ModeReplace:
		return "Replace"
	default:
		return "Search"
	}
}

// QueryKeyMap defines key bindings for the query view
type QueryKeyMap struct {
	Submit    key.Binding
	Cancel    key.Binding
	Next      key.Binding
	Prev      key.Binding
	Regex     key.Binding
	MatchCase key.Binding
	WholeWord key.Binding
}

var QueryKeys = QueryKeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Regex: key.NewBinding(
		key.WithKeys("alt+r"),
		key.WithHelp("alt+r", "regex"),
	),
	MatchCase: key.NewBinding(
		key.WithKeys("alt+c"),
		key.WithHelp("alt+c", "match case"),
	),
	WholeWord: key.NewBinding(
		key.WithKeys("alt+w"),
		key.WithHelp("alt+w", "whole word"),
	),
}

const (
	fieldPattern = iota
	fieldReplace
	fieldInclude
	fieldExclude
	fieldCount
)

// QueryModel edits the parameters of a search, refinement or replace
type QueryModel struct {
	ViewState
	mode      QueryMode
	inputs    [fieldCount]textinput.Model
	focus     int
	isRegex   bool
	matchCase bool
	wholeWord bool
}

// NewQueryModel creates a new query view model
func NewQueryModel() *QueryModel {
	m := &QueryModel{}
	placeholders := [fieldCount]string{
		fieldPattern: "Pattern...",
		fieldReplace: "Replacement...",
		fieldInclude: "src/**, *.go",
		fieldExclude: "**/testdata/**",
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 256
		m.inputs[i] = in
	}
	return m
}

// Init initializes the query view
func (m *QueryModel) Init() tea.Cmd {
	return textinput.Blink
}

// Mode returns what the query will do on submit
func (m *QueryModel) Mode() QueryMode { return m.mode }

// Reset prepares the view for mode, prefilled from q
func (m *QueryModel) Reset(mode QueryMode, q domain.QueryParams) {
	m.ClearMessage()
	m.mode = mode
	m.isRegex, m.matchCase, m.wholeWord = q.IsRegex, q.MatchCase, q.WholeWord
	m.inputs[fieldPattern].SetValue(q.Pattern)
	m.inputs[fieldReplace].SetValue(q.Replace)
	m.inputs[fieldInclude].SetValue(strings.Join(q.Include, ", "))
	m.inputs[fieldExclude].SetValue(strings.Join(q.Exclude, ", "))
	if mode == ModeRefine {
		m.inputs[fieldPattern].SetValue("")
	}
	for i := range m.inputs {
		m.inputs[i].CursorEnd()
	}
	m.setFocus(fieldPattern)
}

// Query builds the query from the current field values
func (m *QueryModel) Query() domain.QueryParams {
	q := domain.QueryParams{
		Pattern:   m.inputs[fieldPattern].Value(),
		IsRegex:   m.isRegex,
		MatchCase: m.matchCase,
		WholeWord: m.wholeWord,
		Include:   splitGlobs(m.inputs[fieldInclude].Value()),
		Exclude:   splitGlobs(m.inputs[fieldExclude].Value()),
	}
	if m.mode == ModeReplace {
		q.Replace = m.inputs[fieldReplace].Value()
	}
	return q
}

func splitGlobs(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func (m *QueryModel) visible(field int) bool {
	return field != fieldReplace || m.mode == ModeReplace
}

func (m *QueryModel) setFocus(field int) {
	m.focus = field
	for i := range m.inputs {
		if i == field {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *QueryModel) cycle(delta int) {
	f := m.focus
	for {
		f = (f + delta + fieldCount) % fieldCount
		if m.visible(f) {
			break
		}
	}
	m.setFocus(f)
}

// Update handles messages for the query view
func (m *QueryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, QueryKeys.Cancel):
			return m, emit(SwitchToResultsMsg{})
		case key.Matches(msg, QueryKeys.Next):
			m.cycle(1)
			return m, nil
		case key.Matches(msg, QueryKeys.Prev):
			m.cycle(-1)
			return m, nil
		case key.Matches(msg, QueryKeys.Regex):
			m.isRegex = !m.isRegex
			return m, nil
		case key.Matches(msg, QueryKeys.MatchCase):
			m.matchCase = !m.matchCase
			return m, nil
		case key.Matches(msg, QueryKeys.WholeWord):
			m.wholeWord = !m.wholeWord
			return m, nil
		case key.Matches(msg, QueryKeys.Submit):
			q := m.Query()
			if err := application.ValidateQuery(q); err != nil {
				m.Fail(err)
				return m, nil
			}
			return m, emit(QuerySubmitMsg{Mode: m.mode, Query: q})
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View renders the query view
func (m *QueryModel) View() string {
	vb := NewViewBuilder()
	vb.Title(m.mode.String())

	labels := [fieldCount]string{
		fieldPattern: "Pattern",
		fieldReplace: "Replace with",
		fieldInclude: "Include",
		fieldExclude: "Exclude",
	}
	for i := range m.inputs {
		if !m.visible(i) {
			continue
		}
		style := styles.InputField
		if i == m.focus {
			style = styles.InputFocused
		}
		vb.Line(styles.InputLabel.Render(labels[i]))
		vb.Line(style.Render(m.inputs[i].View()))
	}
	vb.BlankLine()
	vb.Line(option("regex", m.isRegex) + "  " + option("case", m.matchCase) + "  " + option("word", m.wholeWord))
	vb.BlankLine()
	vb.Message(m.Message, m.MessageErr)
	vb.Help(QueryKeys.Submit, QueryKeys.Next, QueryKeys.Regex, QueryKeys.MatchCase, QueryKeys.WholeWord, QueryKeys.Cancel)
	return vb.String()
}

func option(name string, on bool) string {
	if on {
		return styles.OptionOn.Render("[x] " + name)
	}
	return styles.OptionOff.Render("[ ] " + name)
}

// QuerySubmitMsg is sent when a valid query is submitted
type QuerySubmitMsg struct {
	Mode  QueryMode
	Query domain.QueryParams
}
