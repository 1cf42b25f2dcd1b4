package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	White     = lipgloss.Color("#FFFFFF")
	Black     = lipgloss.Color("#000000")

	// Level colors, cycled by refinement depth
	LevelColors = []lipgloss.Color{
		lipgloss.Color("#6366F1"), // Indigo
		lipgloss.Color("#8B5CF6"), // Violet
		lipgloss.Color("#EC4899"), // Pink
		lipgloss.Color("#F97316"), // Orange
	}

	// Base styles
	App = lipgloss.NewStyle().
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	// Result row styles
	NodeFolder = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA")) // Blue

	NodeFile = lipgloss.NewStyle().
			Bold(true)

	NodeEmpty = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	NodeSelected = lipgloss.NewStyle().
			Background(Primary).
			Foreground(White).
			Bold(true)

	// Pinned headers
	Sticky = lipgloss.NewStyle().
		Background(lipgloss.Color("#1F2937"))

	// Tree indicators
	TreeExpanded  = "▼ "
	TreeCollapsed = "▶ "
	TreeLeaf      = "  "

	// Status bar
	StatusText = lipgloss.NewStyle().
			Foreground(Muted)

	// Input styles
	InputLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	InputField = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	InputFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)

	OptionOn = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	OptionOff = lipgloss.NewStyle().
			Foreground(Muted)

	// Help styles
	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(Muted)

	HelpSeparator = lipgloss.NewStyle().
			Foreground(Muted).
			SetString(" • ")

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	// Search
	SearchMatch = lipgloss.NewStyle().
			Background(Warning).
			Foreground(Black)

	// Muted text style (for using Muted color as a style)
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)

// LevelColor returns the color of refinement level i
func LevelColor(i int) lipgloss.Color {
	if i < 0 {
		return Primary
	}
	return LevelColors[i%len(LevelColors)]
}
