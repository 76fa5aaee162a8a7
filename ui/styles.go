package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// No backgrounds anywhere: the terminal's own background shows through.
	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	DecisionStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)
)

// FormatFooter formats alternating keys and descriptions for modal footers.
// FormatFooter("j/k", "Navigate", "Esc", "Close") -> "j/k Navigate  Esc Close"
func FormatFooter(parts ...string) string {
	return formatKeyHints(lipgloss.NewStyle().Foreground(accentColor).Bold(true), parts...)
}

// formatStatusBar is FormatFooter for the main chat, with descriptions in user green.
func formatStatusBar(parts ...string) string {
	return StatusStyle.Render(formatKeyHints(lipgloss.NewStyle().Foreground(successColor).Bold(true), parts...))
}

func formatKeyHints(descStyle lipgloss.Style, parts ...string) string {
	var result []string
	for i := 0; i+1 < len(parts); i += 2 {
		result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
	}
	return strings.Join(result, "  ")
}
