package model

import (
	"fmt"
	"sync"
)

// MessageStore is the append-only conversation log. The only in-place edit
// allowed is resolving a trailing approval request into text.
type MessageStore struct {
	mu       sync.RWMutex
	messages []Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append adds m to the end of the log and returns its index.
func (s *MessageStore) Append(m Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Kind == "" {
		m.Kind = KindText
	}
	s.messages = append(s.messages, m)
	return len(s.messages) - 1
}

// ResolveLast turns the trailing approval request into a text entry.
func (s *MessageStore) ResolveLast(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 {
		return fmt.Errorf("%w: resolve on empty log", ErrInvalidState)
	}
	last := &s.messages[len(s.messages)-1]
	if last.Kind != KindApprovalRequest {
		return fmt.Errorf("%w: last entry is %s, not an approval request", ErrInvalidState, last.Kind)
	}

	last.Kind = KindText
	last.Text = text
	last.ToolCall = nil
	return nil
}

// All returns a snapshot of the log in insertion order.
func (s *MessageStore) All() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the trailing entry, if any.
func (s *MessageStore) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
