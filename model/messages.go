package model

import "grantdesk/client"

// ChatResultMsg carries the outcome of a /chat turn back into Update.
type ChatResultMsg struct {
	Reply client.ChatReply
	Err   error
}

// GrantAnswerMsg carries the outcome of a /grant-qa question.
type GrantAnswerMsg struct {
	Answer client.GrantAnswer
	Err    error
}

// IngestResultMsg carries the outcome of a document upload.
type IngestResultMsg struct {
	Path     string
	Filename string
	Reply    client.IngestReply
	Err      error
}
