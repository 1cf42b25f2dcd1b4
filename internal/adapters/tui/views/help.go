package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"resultlens/internal/adapters/tui/styles"
)

// HelpKeyMap defines key bindings for the help view
type HelpKeyMap struct {
	Close key.Binding
}

var HelpKeys = HelpKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "q", "?"),
		key.WithHelp("esc/q/?", "close"),
	),
}

// HelpModel is the model for the help view
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Init initializes the help view
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view
func (m *HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, HelpKeys.Close) {
			return m, emit(SwitchToResultsMsg{})
		}
	}

	return m, nil
}

type helpSection struct {
	title    string
	bindings []key.Binding
}

func helpSections() []helpSection {
	k := ResultsKeys
	return []helpSection{
		{"Navigation", []key.Binding{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom, k.Left, k.Right, k.Toggle, k.Enter}},
		{"Search", []key.Binding{k.Query, k.Refine, k.CloseLevel, k.PrevLevel, k.NextLevel, k.Stop, k.Replace}},
		{"View", []key.Binding{k.ViewMode, k.ExpandAll, k.CollapseAll, k.HideEmpty, k.Exclude, k.MoveUp, k.MoveDown, k.ResetOrder, k.CopyPath}},
		{"General", []key.Binding{k.Help, k.Quit}},
	}
}

// View renders the help view
func (m *HelpModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("resultlens help"))
	b.WriteString("\n\n")

	for _, s := range helpSections() {
		b.WriteString(styles.InputLabel.Render(s.title))
		b.WriteString("\n")
		for _, kb := range s.bindings {
			h := kb.Help()
			b.WriteString(helpLine(h.Key, h.Desc))
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpDesc.Render("Press "))
	b.WriteString(styles.HelpKey.Render("esc"))
	b.WriteString(styles.HelpDesc.Render(" or "))
	b.WriteString(styles.HelpKey.Render("?"))
	b.WriteString(styles.HelpDesc.Render(" to close"))

	return b.String()
}

func helpLine(key, desc string) string {
	return "  " + styles.HelpKey.Render(padRight(key, 14)) + styles.HelpDesc.Render(desc) + "\n"
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
