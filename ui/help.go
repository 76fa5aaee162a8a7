package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type helpEntry struct {
	keys string
	desc string
}

func helpSection(heading string, entries []helpEntry) string {
	blue := lipgloss.NewStyle().Foreground(accentColor)
	lines := []string{blue.Render("## " + heading)}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("• %-13s %s", e.keys, e.desc))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func RenderHelpModal(width, height int) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor).
		Render("GrantDesk - Keyboard Shortcuts")

	column1 := lipgloss.JoinVertical(
		lipgloss.Left,
		helpSection("Chat", []helpEntry{
			{"Enter", "Send message"},
			{"Alt+Enter", "New line"},
			{"Alt+U", "Upload a document"},
			{"Alt+F", "Search conversation"},
			{"Alt+H", "Toggle this help"},
			{"Alt+Q", "Quit"},
		}),
		"",
		helpSection("Tool Approval", []helpEntry{
			{"y", "Approve the action"},
			{"n", "Reject (then type a reason)"},
			{"Enter", "Send rejection"},
			{"Esc", "Back to approve/reject"},
		}),
	)

	column2 := lipgloss.JoinVertical(
		lipgloss.Left,
		helpSection("Navigation", []helpEntry{
			{"Alt+J/K", "Half page down/up"},
			{"PgDn/PgUp", "Full page down/up"},
			{"Alt+G", "Jump to top"},
			{"Alt+Shift+G", "Jump to bottom"},
		}),
		"",
		helpSection("Transcript", []helpEntry{
			{"Alt+Y", "Copy last response"},
			{"Alt+C", "Copy conversation"},
			{"Alt+X", "Export as Markdown"},
			{"Alt+Shift+X", "Export as JSON"},
		}),
	)

	columnStyle := lipgloss.NewStyle().Width(42).PaddingLeft(4)

	twoColumns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(column1),
		"  ",
		columnStyle.Render(column2),
	)

	footer := DimStyle.Render("Press Alt+H or Esc to close this help")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		twoColumns,
		"",
		footer,
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpBox.Render(content))
}
