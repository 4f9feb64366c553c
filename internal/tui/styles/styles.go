package styles

import "github.com/charmbracelet/lipgloss"

// Centralized Lip Gloss styles for TUI components in repotree.
// All colors are specified using hex codes.

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff5fd2")).
			MarginBottom(1).
			PaddingLeft(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginBottom(1).
			PaddingLeft(1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5fd7ff")).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	NormalTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#a8a8a8")).
			MarginTop(1).
			Padding(0, 1)

	// Tree rows.
	CursorRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5fd7ff"))

	FolderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5f87ff"))

	MissingStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#ff8787"))

	BadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaf00"))

	MatchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f"))

	// Shared pane styles for split views: tree on the left, preview on
	// the right.
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f5fff")).
			PaddingLeft(2).
			PaddingRight(1)

	PaneFocusedStyle = PaneStyle.
				BorderForeground(lipgloss.Color("#ff5faf"))
)
