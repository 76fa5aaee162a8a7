package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"grantdesk/config"
	"grantdesk/model"
	"grantdesk/storage"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	// Spinner first so its TickMsg is never swallowed by a handler below
	if a.session.Loading() {
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		cmds = append(cmds, cmd)
		if _, ok := msg.(spinner.TickMsg); ok && a.ready {
			a.updateViewportContent(a.viewport.AtBottom())
		}
	}

	// The picker needs its directory listing messages; keys are routed in handleKey
	if a.uploadPicker.Active {
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			a.uploadPicker.Picker, cmd = a.uploadPicker.Picker.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if a.session.Apply(msg) {
		a.afterResult(msg)
		a.updateViewportContent(true)
		cmds = append(cmds, a.pendingRenders())
		return a, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		// title (1) + blank (1) + input (3) + status bar (1)
		a.viewport.Width = a.width
		a.viewport.Height = a.height - 6
		a.textarea.SetWidth(a.width)
		a.reasonInput.Width = a.width - len(a.reasonInput.Prompt) - 2

		a.ready = true
		a.updateViewportContent(true)
		cmds = append(cmds, a.pendingRenders())
		return a, tea.Batch(cmds...)

	case markdownRenderedMsg:
		if a.renderPending[msg.Key] == (renderRequest{source: msg.Source, width: msg.Width}) {
			delete(a.renderPending, msg.Key)
		}
		if msg.Width == a.width {
			a.rendered[msg.Key] = renderedBubble{source: msg.Source, width: msg.Width, rendered: msg.Rendered}
			a.updateViewportContent(a.viewport.AtBottom())
		}
		return a, tea.Batch(cmds...)

	case transcriptExportedMsg:
		if msg.Err != nil {
			a.showInfo("Export Failed", msg.Err.Error(), ModalTypeError)
		} else {
			a.showInfo("✓ Transcript Exported", msg.Path, ModalTypeInfo)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		next, cmd := a.handleKey(msg)
		cmds = append(cmds, cmd)
		return next, tea.Batch(cmds...)
	}

	// Cursor blink and other textarea internals
	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// afterResult runs the view-side effects of a result the session consumed.
func (a *AppView) afterResult(msg tea.Msg) {
	switch msg := msg.(type) {
	case model.IngestResultMsg:
		a.recordUpload(msg)
	case model.ChatResultMsg:
		if a.session.ApprovalState() == model.AwaitingDecision {
			a.textarea.Blur()
		}
	}
}

func (a *AppView) recordUpload(msg model.IngestResultMsg) {
	if a.activity == nil {
		return
	}
	upload := storage.Upload{
		ThreadID:    a.session.ID(),
		Filename:    msg.Filename,
		Path:        msg.Path,
		ChunksAdded: msg.Reply.ChunksAdded,
	}
	if msg.Err != nil {
		upload.Error = msg.Err.Error()
	}
	if _, err := a.activity.RecordUpload(upload); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[UI] %v", err)
	}
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "alt+q", "ctrl+c":
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Quit requested (thread %s)", a.session.ID())
		}
		return a, tea.Quit
	}

	if a.showHelp {
		switch msg.String() {
		case "alt+h", "esc":
			a.showHelp = false
		}
		return a, nil
	}

	if a.showInfoModal {
		switch msg.String() {
		case "enter", "esc":
			a.showInfoModal = false
		}
		return a, nil
	}

	if a.uploadPicker.Active {
		if msg.String() == "esc" {
			a.uploadPicker.Reset()
			return a, nil
		}
		path, cmd := a.uploadPicker.HandleKey(msg)
		if path == "" {
			return a, cmd
		}
		a.uploadPicker.Reset()
		return a.startUpload(path)
	}

	if a.showMessageSearch {
		return a.handleMessageSearchKey(msg)
	}

	switch msg.String() {
	case "alt+h":
		a.closeAllModals()
		a.showHelp = true
		return a, nil

	case "alt+f":
		cmd := a.openMessageSearch()
		return a, cmd

	case "alt+y":
		for _, m := range reverse(a.session.Messages()) {
			if m.Sender == model.SenderAssistant && m.Kind == model.KindText {
				a.copyToClipboard(m.Text)
				break
			}
		}
		return a, nil

	case "alt+c":
		a.copyToClipboard(conversationText(a.session.Messages()))
		return a, nil

	case "alt+x":
		return a, a.exportTranscript("md")

	case "alt+X":
		return a, a.exportTranscript("json")

	case "alt+j", "alt+down":
		a.viewport.HalfViewDown()
		return a, nil

	case "alt+k", "alt+up":
		a.viewport.HalfViewUp()
		return a, nil

	case "pgdown":
		a.viewport.ViewDown()
		return a, nil

	case "pgup":
		a.viewport.ViewUp()
		return a, nil

	case "alt+g":
		a.viewport.GotoTop()
		return a, nil

	case "alt+G":
		a.viewport.GotoBottom()
		return a, nil
	}

	switch a.session.ApprovalState() {
	case model.AwaitingDecision:
		return a.handleDecisionKey(msg)
	case model.CapturingRejectionReason:
		return a.handleReasonKey(msg)
	}

	switch msg.String() {
	case "alt+u":
		if a.session.Loading() {
			return a, nil
		}
		a.closeAllModals()
		cmd := a.uploadPicker.Activate()
		return a, cmd

	case "enter":
		return a.submit()
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) submit() (tea.Model, tea.Cmd) {
	cmd, err := a.session.Submit(a.textarea.Value())
	if err != nil {
		a.logRejected("submit", err)
		return a, nil
	}

	a.textarea.Reset()
	a.highlightedMessageIdx = -1
	a.updateViewportContent(true)
	return a, tea.Batch(cmd, a.loadingSpinner.Tick)
}

func (a AppView) startUpload(path string) (tea.Model, tea.Cmd) {
	cmd, err := a.session.Upload(path)
	if err != nil {
		a.logRejected("upload", err)
		if errors.Is(err, model.ErrInvalidState) {
			a.showInfo("Upload Unavailable", "Finish the current request before uploading.", ModalTypeWarning)
		}
		return a, nil
	}

	a.updateViewportContent(true)
	return a, tea.Batch(cmd, a.loadingSpinner.Tick)
}

func (a AppView) handleDecisionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		call, _ := a.session.PendingToolCall()
		cmd, err := a.session.Approve()
		if err != nil {
			a.logRejected("approve", err)
			return a, nil
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Approved %s", call.Name)
		}
		a.textarea.Focus()
		a.updateViewportContent(true)
		return a, tea.Batch(cmd, a.loadingSpinner.Tick)

	case "n", "N":
		if err := a.session.StartReject(); err != nil {
			a.logRejected("reject", err)
			return a, nil
		}
		a.reasonInput.Reset()
		cmd := a.reasonInput.Focus()
		return a, cmd
	}

	return a, nil
}

func (a AppView) handleReasonKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if err := a.session.CancelReject(); err != nil {
			a.logRejected("cancel reject", err)
		}
		a.reasonInput.Blur()
		return a, nil

	case "enter":
		cmd, err := a.session.SubmitRejection(a.reasonInput.Value())
		if err != nil {
			a.logRejected("submit rejection", err)
			return a, nil
		}
		a.reasonInput.Reset()
		a.reasonInput.Blur()
		a.textarea.Focus()
		a.updateViewportContent(true)
		return a, tea.Batch(cmd, a.loadingSpinner.Tick)
	}

	var cmd tea.Cmd
	a.reasonInput, cmd = a.reasonInput.Update(msg)
	return a, cmd
}

// logRejected records an action the session refused. The view stays as is.
func (a AppView) logRejected(action string, err error) {
	if errors.Is(err, model.ErrEmptyInput) {
		return
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] %s ignored: %v", action, err)
	}
}

func (a *AppView) copyToClipboard(text string) {
	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		a.showInfo("Copy Failed", err.Error(), ModalTypeError)
	}
}

func (a AppView) exportTranscript(ext string) tea.Cmd {
	transcript := storage.NewTranscript(a.session.ID(), a.session.GrantID(), a.session.Messages())
	return func() tea.Msg {
		path := storage.GenerateExportPath(transcript.Title, ext)

		var err error
		if ext == "json" {
			err = storage.ExportJSON(transcript, path)
		} else {
			err = storage.ExportMarkdown(transcript, path)
		}
		if err != nil {
			return transcriptExportedMsg{Err: fmt.Errorf("failed to export transcript: %w", err)}
		}
		return transcriptExportedMsg{Path: path}
	}
}

func conversationText(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		role := "Assistant"
		if m.Sender == model.SenderUser {
			role = "You"
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", m.Timestamp.Format("15:04"), role, m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func reverse(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	for i, m := range messages {
		out[len(messages)-1-i] = m
	}
	return out
}
