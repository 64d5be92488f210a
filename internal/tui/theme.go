// Package tui holds the interactive pieces of the kenv CLI: the
// confirmation prompt, the progress spinner and the shared styles used to
// render tables and environment details.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Color palette.
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#A78BFA") // Light purple
	colorSuccess   = lipgloss.Color("#10B981") // Green (up to date)
	colorDanger    = lipgloss.Color("#EF4444") // Red (errors)
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorBorder    = lipgloss.Color("#374151") // Dark gray
	colorWarning   = lipgloss.Color("#F59E0B") // Amber (outdated)
)

var (
	// Table header row.
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary)

	cellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	// Muted text (channels, secondary info).
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	upToDateStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	outdatedStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Confirmation dialog.
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	dialogButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(colorMuted).
				Padding(0, 2)

	dialogActiveButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(colorDanger).
				Padding(0, 2).
				Bold(true)

	ruleStyle = lipgloss.NewStyle().
			Foreground(colorBorder)
)

// Truncate shortens s to at most width visible cells, marking the cut with
// an ellipsis. ANSI escapes are not counted. width <= 0 disables truncation.
func Truncate(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// Error renders an error line for stderr.
func Error(msg string) string {
	return errorStyle.Render(msg)
}

// Muted renders secondary text.
func Muted(msg string) string {
	return mutedStyle.Render(msg)
}

// Rule renders a horizontal rule of width cells.
func Rule(width int) string {
	if width <= 0 {
		width = 40
	}
	return ruleStyle.Render(strings.Repeat("─", width))
}
