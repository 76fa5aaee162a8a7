package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grantdesk/config"
	"grantdesk/model"
	"grantdesk/storage"
)

type renderedBubble struct {
	source   string
	width    int
	rendered string
}

type renderRequest struct {
	source string
	width  int
}

type AppView struct {
	cfg      *config.Config
	session  *model.ChatSession
	activity *storage.ActivityStore // nil when the history database could not be opened

	viewport    viewport.Model
	textarea    textarea.Model
	reasonInput textinput.Model

	width  int
	height int
	ready  bool

	loadingSpinner spinner.Model

	// Rendered Markdown per row key, refreshed when text or width changes.
	rendered      map[int]renderedBubble
	renderPending map[int]renderRequest
	// Line offset of each row in the viewport content, for search jumps.
	rowOffsets map[int]int

	uploadPicker FilePickerState

	showMessageSearch      bool
	messageSearchInput     textinput.Model
	messageSearchResults   []storage.MessageMatch
	selectedSearchIdx      int
	messageSearchScrollIdx int
	highlightedMessageIdx  int

	showHelp bool

	// Acknowledge modal for notices such as a finished export
	showInfoModal  bool
	infoModalTitle string
	infoModalMsg   string
	infoModalType  ModalType
}

func NewAppView(cfg *config.Config, session *model.ChatSession, activity *storage.ActivityStore) AppView {
	ta := textarea.New()
	ta.Placeholder = "Ask about grants, eligibility or your uploaded documents..."
	if session.GrantID() != "" {
		ta.Placeholder = fmt.Sprintf("Ask a question about grant %s...", session.GrantID())
	}
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Enter sends (handled in Update), Alt+Enter inserts a newline
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	reasonInput := textinput.New()
	reasonInput.Prompt = "Reason: "
	reasonInput.Placeholder = model.DefaultRejectionReason
	reasonInput.CharLimit = 500

	messageSearchInput := textinput.New()
	messageSearchInput.Prompt = "Search: "
	messageSearchInput.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	return AppView{
		cfg:                   cfg,
		session:               session,
		activity:              activity,
		textarea:              ta,
		reasonInput:           reasonInput,
		viewport:              viewport.New(0, 0),
		loadingSpinner:        sp,
		rendered:              make(map[int]renderedBubble),
		renderPending:         make(map[int]renderRequest),
		rowOffsets:            make(map[int]int),
		messageSearchInput:    messageSearchInput,
		highlightedMessageIdx: -1,
		uploadPicker: NewFilePickerState(FilePickerConfig{
			Title:        "📎 Upload Document",
			AllowedTypes: uploadTypes,
		}),
	}
}

func (a AppView) Init() tea.Cmd {
	// Markdown waits for the first WindowSizeMsg so it renders at the right width
	return textarea.Blink
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading GrantDesk..."
	}

	// Modal layers, top first
	if a.showHelp {
		return RenderHelpModal(a.width, a.height)
	}

	if a.showInfoModal {
		return RenderAcknowledgeModal(a.infoModalTitle, a.infoModalMsg, a.infoModalType, a.width, a.height)
	}

	if a.uploadPicker.Active {
		return RenderFilePickerModal(a.uploadPicker, a.width, a.height)
	}

	if a.showMessageSearch {
		return renderMessageSearch(a.messageSearchInput, a.messageSearchResults, a.selectedSearchIdx, a.messageSearchScrollIdx, a.width, a.height)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderTitle(),
		"",
		a.viewport.View(),
		a.renderInput(),
		a.renderStatusBar(),
	)
}

func (a AppView) renderTitle() string {
	title := AssistantStyle.Render("GrantDesk")
	title += TitleStyle.Render(" - " + a.cfg.BackendURL())
	if grantID := a.session.GrantID(); grantID != "" {
		title += UserStyle.Render(" - Grant " + grantID)
	}
	title += DimStyle.Render(" | thread " + shortID(a.session.ID()))
	if a.session.Loading() {
		title += " " + a.loadingSpinner.View()
	}
	return title
}

// renderInput swaps the message box for the decision prompt or the reason
// field while a tool call is under review. Both are kept three lines tall
// so the viewport does not jump.
func (a AppView) renderInput() string {
	switch a.session.ApprovalState() {
	case model.AwaitingDecision:
		prompt := "Approve tool call?"
		if row, ok := a.session.View().PendingDecision(); ok && row.ToolCall != nil {
			prompt = "Approve tool call " + row.ToolCall.Name + "?"
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			DecisionStyle.Render(prompt),
			"",
			DimStyle.Render("Press y to approve or n to reject"),
		)
	case model.CapturingRejectionReason:
		return lipgloss.JoinVertical(lipgloss.Left,
			ErrorStyle.Render("Why are you rejecting this action? (optional)"),
			a.reasonInput.View(),
			"",
		)
	}
	return a.textarea.View()
}

func (a AppView) renderStatusBar() string {
	switch a.session.ApprovalState() {
	case model.AwaitingDecision:
		return formatStatusBar("y", "Approve", "n", "Reject", "Alt+F", "Search", "Alt+Q", "Quit")
	case model.CapturingRejectionReason:
		return formatStatusBar("Enter", "Send reason", "Esc", "Back", "Alt+Q", "Quit")
	}
	return formatStatusBar(
		"Alt+Q", "Quit",
		"Enter", "Send",
		"Alt+Enter", "New Line",
		"Alt+U", "Upload",
		"Alt+F", "Search",
		"Alt+Y", "Copy",
		"Alt+X", "Export",
		"Alt+H", "Help",
	)
}

func (a *AppView) closeAllModals() {
	a.showHelp = false
	a.showInfoModal = false
	a.showMessageSearch = false
	a.messageSearchInput.Blur()
	a.uploadPicker.Reset()
}

func (a *AppView) showInfo(title, msg string, modalType ModalType) {
	a.showInfoModal = true
	a.infoModalTitle = title
	a.infoModalMsg = msg
	a.infoModalType = modalType
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
