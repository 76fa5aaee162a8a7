package testutil

import (
	"context"
	"io"
	"sync"

	"grantdesk/client"
)

// MockTransport stands in for *client.Client. Each call is recorded and then
// answered by the matching Func field.
type MockTransport struct {
	SendChatFunc func(ctx context.Context, req client.ChatRequest) (client.ChatReply, error)
	IngestFunc   func(ctx context.Context, filename string, r io.Reader) (client.IngestReply, error)
	AskGrantFunc func(ctx context.Context, q client.GrantQuestion) (client.GrantAnswer, error)

	mu              sync.Mutex
	chatRequests    []client.ChatRequest
	ingestedFiles   []string
	grantQuestions  []client.GrantQuestion
	ingestedPayload [][]byte
}

// NewMockTransport answers every chat turn with "Mock response", every
// upload with one chunk and every grant question with "Mock answer".
func NewMockTransport() *MockTransport {
	return &MockTransport{
		SendChatFunc: func(ctx context.Context, req client.ChatRequest) (client.ChatReply, error) {
			return client.OkReply{Text: "Mock response"}, nil
		},
		IngestFunc: func(ctx context.Context, filename string, r io.Reader) (client.IngestReply, error) {
			return client.IngestReply{ChunksAdded: 1}, nil
		},
		AskGrantFunc: func(ctx context.Context, q client.GrantQuestion) (client.GrantAnswer, error) {
			return client.GrantAnswer{Answer: "Mock answer"}, nil
		},
	}
}

func (m *MockTransport) SendChat(ctx context.Context, req client.ChatRequest) (client.ChatReply, error) {
	m.mu.Lock()
	m.chatRequests = append(m.chatRequests, req)
	m.mu.Unlock()
	return m.SendChatFunc(ctx, req)
}

func (m *MockTransport) Ingest(ctx context.Context, filename string, r io.Reader) (client.IngestReply, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return client.IngestReply{}, err
	}
	m.mu.Lock()
	m.ingestedFiles = append(m.ingestedFiles, filename)
	m.ingestedPayload = append(m.ingestedPayload, data)
	m.mu.Unlock()
	return m.IngestFunc(ctx, filename, r)
}

func (m *MockTransport) AskGrant(ctx context.Context, q client.GrantQuestion) (client.GrantAnswer, error) {
	m.mu.Lock()
	m.grantQuestions = append(m.grantQuestions, q)
	m.mu.Unlock()
	return m.AskGrantFunc(ctx, q)
}

// ChatRequests returns every /chat request seen so far, in order.
func (m *MockTransport) ChatRequests() []client.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.ChatRequest(nil), m.chatRequests...)
}

// IngestedFiles returns the filenames passed to Ingest, in order.
func (m *MockTransport) IngestedFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingestedFiles...)
}

// IngestedPayloads returns the bytes read from each Ingest reader.
func (m *MockTransport) IngestedPayloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.ingestedPayload...)
}

// GrantQuestions returns every /grant-qa request seen so far, in order.
func (m *MockTransport) GrantQuestions() []client.GrantQuestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]client.GrantQuestion(nil), m.grantQuestions...)
}

// ReplyQueue returns a SendChatFunc that hands out replies in order and
// falls back to an OkReply once the queue is drained.
func ReplyQueue(replies ...client.ChatReply) func(context.Context, client.ChatRequest) (client.ChatReply, error) {
	var mu sync.Mutex
	return func(ctx context.Context, req client.ChatRequest) (client.ChatReply, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return client.OkReply{Text: "Mock response"}, nil
		}
		next := replies[0]
		replies = replies[1:]
		return next, nil
	}
}
