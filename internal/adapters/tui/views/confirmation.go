package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"resultlens/internal/adapters/tui/styles"
	"resultlens/internal/domain"
)

// ConfirmKeyMap defines key bindings for confirmation views
type ConfirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultConfirmKeys returns the default confirmation key bindings
var DefaultConfirmKeys = ConfirmKeyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}

// ReplaceConfirmModel asks before rewriting files on disk
type ReplaceConfirmModel struct {
	ViewState
	Keys    ConfirmKeyMap
	query   domain.QueryParams
	fileIDs []string
	matches int
}

// NewReplaceConfirmModel creates a new confirmation model with default keys
func NewReplaceConfirmModel() *ReplaceConfirmModel {
	return &ReplaceConfirmModel{Keys: DefaultConfirmKeys}
}

// SetTarget sets the replace the user is asked to confirm
func (m *ReplaceConfirmModel) SetTarget(q domain.QueryParams, fileIDs []string, matches int) {
	m.query = q
	m.fileIDs = fileIDs
	m.matches = matches
}

// Init initializes the view
func (m *ReplaceConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the confirmation view
func (m *ReplaceConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Cancel):
			return m, emit(SwitchToResultsMsg{})
		case key.Matches(msg, m.Keys.Confirm):
			return m, emit(ReplaceConfirmedMsg{Query: m.query, FileIDs: m.fileIDs})
		}
	}
	return m, nil
}

// View renders the confirmation view
func (m *ReplaceConfirmModel) View() string {
	vb := NewViewBuilder()
	vb.Title("Replace")
	vb.Line(RenderLabelValue("Find", m.query.Pattern))
	vb.Line(RenderLabelValue("Replace with", m.query.Replace))
	vb.BlankLine()
	vb.Line(fmt.Sprintf("%d matches in %d files will be rewritten.", m.matches, len(m.fileIDs)))
	vb.BlankLine()
	vb.Line(RenderConfirmPrompt("Continue?"))
	return vb.String()
}

// RenderConfirmPrompt renders the standard confirmation prompt
func RenderConfirmPrompt(question string) string {
	var b strings.Builder
	b.WriteString(question)
	b.WriteString(" ")
	b.WriteString(styles.HelpKey.Render("y"))
	b.WriteString(styles.HelpDesc.Render(" to confirm, "))
	b.WriteString(styles.HelpKey.Render("n"))
	b.WriteString(styles.HelpDesc.Render(" to cancel"))
	return b.String()
}

// ReplaceConfirmedMsg is sent when the user accepts a replace
type ReplaceConfirmedMsg struct {
	Query   domain.QueryParams
	FileIDs []string
}
