package ui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantdesk/client"
	"grantdesk/client/testutil"
	"grantdesk/config"
	"grantdesk/model"
	"grantdesk/storage"
)

var bookFlight = client.ApprovalReply{
	Text:     "I want to run book_flight",
	ToolCall: client.ToolCall{Name: "book_flight", Args: map[string]any{"to": "BLR"}},
}

func newTestView(t *testing.T, mock *testutil.MockTransport, activity *storage.ActivityStore) AppView {
	t.Helper()
	session := model.NewChatSession(mock)
	v := NewAppView(&config.Config{APIURL: "http://backend.test"}, session, activity)
	next, _ := v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(AppView)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func altKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s), Alt: true}
}

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

func press(t *testing.T, v AppView, msg tea.Msg) (AppView, tea.Cmd) {
	t.Helper()
	next, cmd := v.Update(msg)
	return next.(AppView), cmd
}

// collect runs cmd, expanding batches, and returns the session results it produced.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	switch msg.(type) {
	case model.ChatResultMsg, model.GrantAnswerMsg, model.IngestResultMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func feed(t *testing.T, v AppView, cmd tea.Cmd) AppView {
	t.Helper()
	results := collect(cmd)
	require.Len(t, results, 1)
	v, _ = press(t, v, results[0])
	return v
}

func texts(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestAppViewSubmitRoundTrip(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue(client.OkReply{Text: "Hello **there**"})
	v := newTestView(t, mock, nil)
	require.True(t, v.ready)

	v.textarea.SetValue("hello")
	v, cmd := press(t, v, enterKey)
	assert.True(t, v.session.Loading())
	assert.Empty(t, v.textarea.Value())
	assert.Contains(t, v.viewport.View(), "Thinking...")

	v = feed(t, v, cmd)
	assert.False(t, v.session.Loading())
	assert.Equal(t, []string{"hello", "Hello **there**"}, texts(v.session.Messages()))
	assert.Equal(t, renderRequest{source: "Hello **there**", width: 100}, v.renderPending[1])

	reqs := mock.ChatRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, v.session.ID(), reqs[0].ThreadID)
}

func TestAppViewIgnoresBlankSubmit(t *testing.T) {
	v := newTestView(t, testutil.NewMockTransport(), nil)
	v.textarea.SetValue("   ")

	v, cmd := press(t, v, enterKey)
	assert.Nil(t, cmd)
	assert.Empty(t, v.session.Messages())
}

func TestAppViewApprove(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue(bookFlight, client.OkReply{Text: "Booked."})
	v := newTestView(t, mock, nil)

	v.textarea.SetValue("book a flight")
	v, cmd := press(t, v, enterKey)
	v = feed(t, v, cmd)

	require.Equal(t, model.AwaitingDecision, v.session.ApprovalState())
	assert.Contains(t, v.View(), "Approve tool call book_flight?")
	assert.Contains(t, v.viewport.View(), "Approval Required")

	// Free text is not accepted while the decision is open
	v, cmd = press(t, v, keyRunes("x"))
	assert.Nil(t, cmd)
	assert.Len(t, v.session.Messages(), 2)

	v, cmd = press(t, v, keyRunes("y"))
	assert.Equal(t, model.Idle, v.session.ApprovalState())
	assert.Equal(t, "✅ Action Approved: book_flight", v.session.Messages()[1].Text)

	v = feed(t, v, cmd)
	assert.Equal(t, []string{"book a flight", "✅ Action Approved: book_flight", "Booked."}, texts(v.session.Messages()))

	reqs := mock.ChatRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, client.ActionResume, reqs[1].Action)
}

func TestAppViewRejectWithReason(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue(bookFlight, client.OkReply{Text: "Okay, cancelled."})
	v := newTestView(t, mock, nil)

	v.textarea.SetValue("book a flight")
	v, cmd := press(t, v, enterKey)
	v = feed(t, v, cmd)

	v, _ = press(t, v, keyRunes("n"))
	require.Equal(t, model.CapturingRejectionReason, v.session.ApprovalState())
	assert.Contains(t, v.View(), "Why are you rejecting this action?")

	v, _ = press(t, v, keyRunes("too expensive"))
	v, cmd = press(t, v, enterKey)
	assert.Equal(t, model.Idle, v.session.ApprovalState())
	assert.Equal(t, "❌ Action Rejected: too expensive", v.session.Messages()[1].Text)

	v = feed(t, v, cmd)
	reqs := mock.ChatRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, client.ActionFeedback, reqs[1].Action)
	assert.Equal(t, "too expensive", reqs[1].FeedbackText)
	assert.Equal(t, "Okay, cancelled.", v.session.Messages()[2].Text)
}

func TestAppViewCancelReject(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue(bookFlight)
	v := newTestView(t, mock, nil)

	v.textarea.SetValue("book a flight")
	v, cmd := press(t, v, enterKey)
	v = feed(t, v, cmd)

	v, _ = press(t, v, keyRunes("n"))
	v, _ = press(t, v, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, model.AwaitingDecision, v.session.ApprovalState())
	assert.Equal(t, model.KindApprovalRequest, v.session.Messages()[1].Kind)
	assert.Len(t, mock.ChatRequests(), 1)
}

func TestAppViewTransportFailure(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue()
	v := newTestView(t, mock, nil)

	v, _ = press(t, v, model.ChatResultMsg{Err: &client.TransportError{Op: "chat", Detail: "connection refused"}})
	msgs := v.session.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "⚠️")
	assert.Empty(t, v.renderPending, "failures are not sent through markdown")
}

func TestAppViewUploadRecordsActivity(t *testing.T) {
	activity, err := storage.NewActivityStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { activity.Close() })

	mock := testutil.NewMockTransport()
	v := newTestView(t, mock, activity)

	path := filepath.Join(t.TempDir(), "guidelines.txt")
	require.NoError(t, os.WriteFile(path, []byte("eligibility rules"), 0o600))

	next, cmd := v.startUpload(path)
	v = next.(AppView)
	assert.Equal(t, "📎 Uploading guidelines.txt", v.session.Messages()[0].Text)

	v = feed(t, v, cmd)
	assert.Contains(t, v.session.Messages()[1].Text, "guidelines.txt")

	uploads, err := activity.ListUploads(10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "guidelines.txt", uploads[0].Filename)
	assert.Equal(t, path, uploads[0].Path)
	assert.Equal(t, v.session.ID(), uploads[0].ThreadID)
	assert.True(t, uploads[0].Succeeded())
}

func TestAppViewUploadBlockedDuringDecision(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue(bookFlight)
	v := newTestView(t, mock, nil)

	v.textarea.SetValue("book a flight")
	v, cmd := press(t, v, enterKey)
	v = feed(t, v, cmd)

	next, cmd := v.startUpload("/tmp/anything.pdf")
	v = next.(AppView)
	assert.Nil(t, cmd)
	assert.True(t, v.showInfoModal)
	assert.Len(t, v.session.Messages(), 2)
	assert.Empty(t, mock.IngestedFiles())
}

func TestAppViewMarkdownCache(t *testing.T) {
	v := newTestView(t, testutil.NewMockTransport(), nil)
	v, _ = press(t, v, model.ChatResultMsg{Reply: client.OkReply{Text: "plain answer"}})
	require.Equal(t, renderRequest{source: "plain answer", width: 100}, v.renderPending[0])

	// A result for another width is dropped
	v, _ = press(t, v, markdownRenderedMsg{Key: 0, Source: "plain answer", Width: 50, Rendered: "STALE"})
	assert.NotContains(t, v.viewport.View(), "STALE")

	v, _ = press(t, v, markdownRenderedMsg{Key: 0, Source: "plain answer", Width: 100, Rendered: "RENDERED"})
	assert.Empty(t, v.renderPending)
	assert.Contains(t, v.viewport.View(), "RENDERED")
}

func TestAppViewMarkdownRerenderAfterResize(t *testing.T) {
	v := newTestView(t, testutil.NewMockTransport(), nil)
	v, _ = press(t, v, model.ChatResultMsg{Reply: client.OkReply{Text: "plain answer"}})
	require.Equal(t, renderRequest{source: "plain answer", width: 100}, v.renderPending[0])

	// Resized while the first render is still in flight
	next, cmd := v.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	v = next.(AppView)
	require.NotNil(t, cmd)
	assert.Equal(t, renderRequest{source: "plain answer", width: 80}, v.renderPending[0])

	v, _ = press(t, v, markdownRenderedMsg{Key: 0, Source: "plain answer", Width: 100, Rendered: "WIDE"})
	assert.NotContains(t, v.viewport.View(), "WIDE")
	assert.Equal(t, renderRequest{source: "plain answer", width: 80}, v.renderPending[0])

	v, _ = press(t, v, markdownRenderedMsg{Key: 0, Source: "plain answer", Width: 80, Rendered: "NARROW"})
	assert.Empty(t, v.renderPending)
	assert.Contains(t, v.viewport.View(), "NARROW")
}

func TestAppViewMessageSearch(t *testing.T) {
	v := newTestView(t, testutil.NewMockTransport(), nil)
	v, _ = press(t, v, model.ChatResultMsg{Reply: client.OkReply{Text: "The deadline is in March"}})
	v, _ = press(t, v, model.ChatResultMsg{Reply: client.OkReply{Text: "Budget caps apply"}})

	v, _ = press(t, v, altKey("f"))
	require.True(t, v.showMessageSearch)

	v, _ = press(t, v, keyRunes("deadline"))
	require.NotEmpty(t, v.messageSearchResults)
	assert.Equal(t, 0, v.messageSearchResults[0].MessageIndex)

	v, _ = press(t, v, enterKey)
	assert.False(t, v.showMessageSearch)
	assert.Equal(t, 0, v.highlightedMessageIdx)
}

func TestAppViewHelpToggle(t *testing.T) {
	v := newTestView(t, testutil.NewMockTransport(), nil)

	v, _ = press(t, v, altKey("h"))
	assert.True(t, v.showHelp)
	assert.Contains(t, v.View(), "Keyboard Shortcuts")

	v, _ = press(t, v, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.showHelp)
}

func TestAppViewQuit(t *testing.T) {
	v := newTestView(t, testutil.NewMockTransport(), nil)
	_, cmd := press(t, v, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestConversationText(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendChatFunc = testutil.ReplyQueue(client.OkReply{Text: "hi"})
	session := model.NewChatSession(mock)
	cmd, err := session.Submit("hello")
	require.NoError(t, err)
	require.True(t, session.Apply(cmd()))

	text := conversationText(session.Messages())
	assert.Contains(t, text, "You:\nhello")
	assert.Contains(t, text, "Assistant:\nhi")
}
