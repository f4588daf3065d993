package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
	ThickBorder   = lipgloss.ThickBorder()
)

var (
	TitleStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(Secondary).
		Italic(true)

	TextStyle = lipgloss.NewStyle().
		Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
		Foreground(Muted)

	// Story row in a list
	RowStyle = lipgloss.NewStyle().
		Padding(0, 1)

	SelectedRowStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(Primary).
		Padding(0, 1)

	// One page block in the reader
	PageStyle = lipgloss.NewStyle().
		Border(RoundedBorder).
		BorderForeground(Secondary).
		Padding(0, 2)

	CurrentPageStyle = lipgloss.NewStyle().
		Border(ThickBorder).
		BorderForeground(Primary).
		Padding(0, 2)

	StatusLoading = lipgloss.NewStyle().
		Foreground(Info).
		Bold(true)

	StatusCompleted = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	StatusFallback = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true)

	StatusError = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	ProgressBarStyle = lipgloss.NewStyle().
		Foreground(Primary)

	ProgressEmptyStyle = lipgloss.NewStyle().
		Foreground(Muted)

	ActiveTabStyle = lipgloss.NewStyle().
		Foreground(Primary).
		Background(lipgloss.Color("#37474F")).
		Padding(0, 2).
		Bold(true)

	InactiveTabStyle = lipgloss.NewStyle().
		Foreground(Muted).
		Padding(0, 2)

	// Active filter chip
	ChipStyle = lipgloss.NewStyle().
		Foreground(Secondary).
		Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true).
		MarginTop(1)

	InputStyle = lipgloss.NewStyle().
		Border(RoundedBorder).
		BorderForeground(Secondary).
		Padding(0, 1)

	FocusedInputStyle = lipgloss.NewStyle().
		Border(RoundedBorder).
		BorderForeground(Primary).
		Padding(0, 1)
)

// StatusStyle picks the style for a story or page status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ongoing", "loading", "pending":
		return StatusLoading
	case "completed", "loaded":
		return StatusCompleted
	case "fallback":
		return StatusFallback
	case "failed", "error":
		return StatusError
	default:
		return MutedStyle
	}
}
