package model

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"grantdesk/client"
	"grantdesk/config"
)

// Transport is the subset of *client.Client a chat session needs.
type Transport interface {
	SendChat(ctx context.Context, req client.ChatRequest) (client.ChatReply, error)
	Ingest(ctx context.Context, filename string, r io.Reader) (client.IngestReply, error)
	AskGrant(ctx context.Context, q client.GrantQuestion) (client.GrantAnswer, error)
}

// ChatSession owns one conversation: its thread id, the message log, the
// in-flight flag and the approval sub-state. It must only be mutated from
// the bubbletea Update loop; network work runs inside the returned tea.Cmds.
type ChatSession struct {
	id        string
	transport Transport
	store     *MessageStore
	approval  Approval
	loading   bool
	grantID   string
	timeout   time.Duration
}

type SessionOption func(*ChatSession)

// WithGreeting opens the log with an assistant message.
func WithGreeting(text string) SessionOption {
	return func(s *ChatSession) {
		if strings.TrimSpace(text) != "" {
			s.store.Append(assistantText(text))
		}
	}
}

// WithGrant scopes the session to a single grant: questions go to /grant-qa
// and tool approvals never occur.
func WithGrant(grantID string) SessionOption {
	return func(s *ChatSession) {
		s.grantID = grantID
	}
}

// WithTimeout bounds every call made by the session. Zero leaves it to the
// transport.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *ChatSession) {
		s.timeout = d
	}
}

func NewChatSession(transport Transport, opts ...SessionOption) *ChatSession {
	s := &ChatSession{
		id:        NewSessionID(),
		transport: transport,
		store:     NewMessageStore(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] New session %s (grant=%q)", s.id, s.grantID)
	}
	return s
}

func (s *ChatSession) ID() string                   { return s.id }
func (s *ChatSession) Loading() bool                { return s.loading }
func (s *ChatSession) Messages() []Message          { return s.store.All() }
func (s *ChatSession) ApprovalState() ApprovalState { return s.approval.State() }
func (s *ChatSession) GrantID() string              { return s.grantID }

// PendingToolCall returns the tool call awaiting a decision.
func (s *ChatSession) PendingToolCall() (client.ToolCall, bool) {
	if !s.approval.Pending() {
		return client.ToolCall{}, false
	}
	return s.approval.ToolCall(), true
}

// View projects the current log for rendering.
func (s *ChatSession) View() DisplayModel {
	return Project(s.store.All(), s.loading)
}

func (s *ChatSession) ready() error {
	if s.loading {
		return fmt.Errorf("%w: a request is already in flight", ErrInvalidState)
	}
	if s.approval.Pending() {
		return fmt.Errorf("%w: a tool call is awaiting approval", ErrInvalidState)
	}
	return nil
}

// Submit sends a free-text turn. The user message is appended immediately;
// the reply arrives later as a ChatResultMsg (or GrantAnswerMsg in grant
// mode) that must be passed to Apply.
func (s *ChatSession) Submit(text string) (tea.Cmd, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.store.Append(userText(text))
	s.loading = true

	if s.grantID != "" {
		return s.askGrantCmd(client.GrantQuestion{GrantID: s.grantID, Question: text, ThreadID: s.id}), nil
	}
	return s.chatCmd(client.ChatRequest{Message: text, ThreadID: s.id}), nil
}

// Upload sends a local document to the knowledge base.
func (s *ChatSession) Upload(path string) (tea.Cmd, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyInput
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	s.store.Append(userText("📎 Uploading " + name))
	s.loading = true

	transport := s.transport
	timeout := s.timeout
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return IngestResultMsg{Path: path, Filename: name, Err: fmt.Errorf("failed to open %s: %w", name, err)}
		}
		defer f.Close()

		ctx, cancel := requestContext(timeout)
		defer cancel()

		reply, err := transport.Ingest(ctx, path, f)
		return IngestResultMsg{Path: path, Filename: name, Reply: reply, Err: err}
	}, nil
}

// Approve accepts the pending tool call and resumes the backend run.
func (s *ChatSession) Approve() (tea.Cmd, error) {
	if s.loading {
		return nil, fmt.Errorf("%w: a request is already in flight", ErrInvalidState)
	}
	if err := s.approval.expect(AwaitingDecision); err != nil {
		return nil, err
	}
	if err := s.expectPendingRequest(); err != nil {
		return nil, err
	}
	call := s.approval.ToolCall()
	if err := s.store.ResolveLast(approvedText(call.Name)); err != nil {
		return nil, err
	}
	if err := s.approval.transition(AwaitingDecision, Idle); err != nil {
		return nil, err
	}
	s.loading = true

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Approved tool %s", call.Name)
	}
	return s.chatCmd(client.ChatRequest{Action: client.ActionResume, ThreadID: s.id}), nil
}

// expectPendingRequest checks the log still ends in the approval request
// the decision will resolve.
func (s *ChatSession) expectPendingRequest() error {
	last, ok := s.store.Last()
	if !ok || last.Kind != KindApprovalRequest {
		return fmt.Errorf("%w: no approval request at the end of the log", ErrInvalidState)
	}
	return nil
}

// StartReject moves to reason capture. No request is made.
func (s *ChatSession) StartReject() error {
	return s.approval.transition(AwaitingDecision, CapturingRejectionReason)
}

// CancelReject abandons reason capture and returns to the decision prompt.
func (s *ChatSession) CancelReject() error {
	return s.approval.transition(CapturingRejectionReason, AwaitingDecision)
}

// SubmitRejection rejects the pending tool call with reason, or
// DefaultRejectionReason when reason is blank, and sends it as feedback.
func (s *ChatSession) SubmitRejection(reason string) (tea.Cmd, error) {
	if s.loading {
		return nil, fmt.Errorf("%w: a request is already in flight", ErrInvalidState)
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultRejectionReason
	}
	if err := s.approval.expect(CapturingRejectionReason); err != nil {
		return nil, err
	}
	if err := s.expectPendingRequest(); err != nil {
		return nil, err
	}
	if err := s.store.ResolveLast(rejectedText(strings.TrimSpace(reason))); err != nil {
		return nil, err
	}
	if err := s.approval.transition(CapturingRejectionReason, Idle); err != nil {
		return nil, err
	}
	s.loading = true

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Rejected tool call: %s", reason)
	}
	return s.chatCmd(client.ChatRequest{Action: client.ActionFeedback, FeedbackText: reason, ThreadID: s.id}), nil
}

// Apply folds a result message into the session and reports whether msg
// belonged to it.
func (s *ChatSession) Apply(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case ChatResultMsg:
		s.loading = false
		if msg.Err != nil {
			s.appendFailure(msg.Err)
			return true
		}
		s.applyReply(msg.Reply)
		return true

	case GrantAnswerMsg:
		s.loading = false
		if msg.Err != nil {
			s.appendFailure(msg.Err)
			return true
		}
		s.store.Append(assistantText(formatGrantAnswer(msg.Answer)))
		return true

	case IngestResultMsg:
		s.loading = false
		if msg.Err != nil {
			s.appendFailure(msg.Err)
			return true
		}
		s.store.Append(assistantText(fmt.Sprintf("Added **%s** to the knowledge base (%d chunks indexed).", msg.Filename, msg.Reply.ChunksAdded)))
		return true
	}
	return false
}

func (s *ChatSession) applyReply(reply client.ChatReply) {
	switch r := reply.(type) {
	case client.ApprovalReply:
		if s.grantID != "" {
			s.store.Append(assistantText(r.Text))
			return
		}
		if err := s.approval.begin(r.ToolCall); err != nil {
			s.appendFailure(err)
			return
		}
		s.store.Append(approvalRequest(r.Text, r.ToolCall))
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Chat] Tool %s awaiting approval (args=%v)", r.ToolCall.Name, r.ToolCall.Args)
		}
	case client.OkReply:
		s.store.Append(assistantText(r.Text))
	case nil:
		s.appendFailure(fmt.Errorf("empty reply"))
	}
}

func (s *ChatSession) appendFailure(err error) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Chat] Request failed: %v", err)
	}
	s.store.Append(assistantText(FailureText(err)))
}

// FailureText is the assistant message shown for a failed request.
func FailureText(err error) string {
	return fmt.Sprintf("⚠️ Sorry, I couldn't reach the assistant: %v. Please try again.", err)
}

func formatGrantAnswer(a client.GrantAnswer) string {
	if len(a.Sources) == 0 {
		return a.Answer
	}
	var b strings.Builder
	b.WriteString(a.Answer)
	b.WriteString("\n\n**Sources:**\n")
	for _, src := range a.Sources {
		b.WriteString("- ")
		b.WriteString(src)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *ChatSession) chatCmd(req client.ChatRequest) tea.Cmd {
	transport := s.transport
	timeout := s.timeout
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()

		reply, err := transport.SendChat(ctx, req)
		return ChatResultMsg{Reply: reply, Err: err}
	}
}

func (s *ChatSession) askGrantCmd(q client.GrantQuestion) tea.Cmd {
	transport := s.transport
	timeout := s.timeout
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()

		answer, err := transport.AskGrant(ctx, q)
		return GrantAnswerMsg{Answer: answer, Err: err}
	}
}

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
