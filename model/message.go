package model

import (
	"time"

	"grantdesk/client"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Kind string

const (
	KindText            Kind = "text"
	KindApprovalRequest Kind = "approval-request"
)

// Message is one entry in the conversation log. ToolCall is set only while
// Kind is KindApprovalRequest.
type Message struct {
	Sender    Sender
	Kind      Kind
	Text      string
	ToolCall  *client.ToolCall
	Timestamp time.Time
}

func userText(text string) Message {
	return Message{Sender: SenderUser, Kind: KindText, Text: text, Timestamp: time.Now()}
}

func assistantText(text string) Message {
	return Message{Sender: SenderAssistant, Kind: KindText, Text: text, Timestamp: time.Now()}
}

func approvalRequest(text string, call client.ToolCall) Message {
	return Message{
		Sender:    SenderAssistant,
		Kind:      KindApprovalRequest,
		Text:      text,
		ToolCall:  &call,
		Timestamp: time.Now(),
	}
}
