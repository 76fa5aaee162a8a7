package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grantdesk/model"
	"grantdesk/storage"
)

func (a *AppView) openMessageSearch() tea.Cmd {
	a.closeAllModals()
	a.showMessageSearch = true
	a.messageSearchInput.SetValue("")
	a.messageSearchResults = nil
	a.selectedSearchIdx = 0
	a.messageSearchScrollIdx = 0
	return a.messageSearchInput.Focus()
}

func (a AppView) handleMessageSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.closeAllModals()
		return a, nil

	case "down", "ctrl+j", "alt+j":
		if a.selectedSearchIdx < len(a.messageSearchResults)-1 {
			a.selectedSearchIdx++
			a.adjustSearchScroll()
		}
		return a, nil

	case "up", "ctrl+k", "alt+k":
		if a.selectedSearchIdx > 0 {
			a.selectedSearchIdx--
			a.adjustSearchScroll()
		}
		return a, nil

	case "enter":
		if len(a.messageSearchResults) == 0 {
			return a, nil
		}
		target := a.messageSearchResults[a.selectedSearchIdx].MessageIndex
		a.closeAllModals()
		a.highlightedMessageIdx = target
		a.updateViewportContent(false)
		if offset, ok := a.rowOffsets[target]; ok {
			a.viewport.SetYOffset(offset)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.messageSearchInput, cmd = a.messageSearchInput.Update(msg)
	a.messageSearchResults = storage.SearchMessages(a.session.Messages(), a.messageSearchInput.Value())
	a.selectedSearchIdx = 0
	a.messageSearchScrollIdx = 0
	return a, cmd
}

const searchResultsPerPage = 5

func (a *AppView) adjustSearchScroll() {
	if a.selectedSearchIdx < a.messageSearchScrollIdx {
		a.messageSearchScrollIdx = a.selectedSearchIdx
	}
	if a.selectedSearchIdx >= a.messageSearchScrollIdx+searchResultsPerPage {
		a.messageSearchScrollIdx = a.selectedSearchIdx - searchResultsPerPage + 1
	}
}

func renderMessageSearch(searchInput textinput.Model, results []storage.MessageMatch, selectedIdx, scrollIdx, width, height int) string {
	modalWidth := width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	title := TitleStyle.Render("🔍 Search Conversation")

	var resultsView strings.Builder
	switch {
	case len(results) == 0 && searchInput.Value() == "":
		resultsView.WriteString(DimStyle.Render("Type to search messages in this conversation..."))
	case len(results) == 0:
		resultsView.WriteString(DimStyle.Render("No matches found"))
	default:
		endIdx := scrollIdx + searchResultsPerPage
		if endIdx > len(results) {
			endIdx = len(results)
		}

		fmt.Fprintf(&resultsView, "Found %d matches:\n\n", len(results))
		if scrollIdx > 0 {
			resultsView.WriteString(DimStyle.Render(fmt.Sprintf("↑ %d more above", scrollIdx)) + "\n\n")
		}

		for i := scrollIdx; i < endIdx; i++ {
			match := results[i]

			roleStyle, roleName := AssistantStyle, "Assistant"
			if match.Sender == model.SenderUser {
				roleStyle, roleName = UserStyle, "You"
			}

			matchText := fmt.Sprintf("%s [%s]\n  %s",
				roleStyle.Render(roleName),
				match.Timestamp.Format("Jan 2, 3:04 PM"),
				match.Preview,
			)

			if i == selectedIdx {
				matchText = SelectedStyle.Render("> ") + matchText
			} else {
				matchText = "  " + matchText
			}

			resultsView.WriteString(matchText + "\n\n")
		}

		if endIdx < len(results) {
			resultsView.WriteString(DimStyle.Render(fmt.Sprintf("↓ %d more below", len(results)-endIdx)))
		}
	}

	footer := FormatFooter("Type", "to search", "↑/↓", "Navigate", "Enter", "Jump", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		searchInput.View(),
		"",
		strings.TrimRight(resultsView.String(), "\n"),
		"",
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
