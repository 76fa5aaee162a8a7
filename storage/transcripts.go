package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"grantdesk/config"
	"grantdesk/model"
)

// TranscriptMessage is the exported form of a model.Message.
type TranscriptMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	ToolCall  string    `json:"tool_call,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is a conversation as written to disk by ExportJSON.
type Transcript struct {
	ThreadID   string              `json:"thread_id"`
	Title      string              `json:"title"`
	GrantID    string              `json:"grant_id,omitempty"`
	ExportedAt time.Time           `json:"exported_at"`
	Messages   []TranscriptMessage `json:"messages"`
}

func NewTranscript(threadID, grantID string, messages []model.Message) Transcript {
	t := Transcript{
		ThreadID:   threadID,
		GrantID:    grantID,
		Title:      TranscriptTitle(messages),
		ExportedAt: time.Now(),
		Messages:   make([]TranscriptMessage, 0, len(messages)),
	}
	for _, m := range messages {
		tm := TranscriptMessage{Sender: string(m.Sender), Text: m.Text, Timestamp: m.Timestamp}
		if m.Kind == model.KindApprovalRequest && m.ToolCall != nil {
			tm.ToolCall = m.ToolCall.Name
		}
		t.Messages = append(t.Messages, tm)
	}
	return t
}

// TranscriptTitle derives a title from the first user message
func TranscriptTitle(messages []model.Message) string {
	for _, m := range messages {
		if m.Sender != model.SenderUser {
			continue
		}
		title := strings.Join(strings.Fields(m.Text), " ")
		if title == "" {
			continue
		}
		if runewidth.StringWidth(title) > 30 {
			title = runewidth.Truncate(title, 30, "...")
		}
		return title
	}
	return fmt.Sprintf("Chat %s", time.Now().Format("Jan 2, 3:04 PM"))
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-",
		"<", "-", ">", "-", "|", "-", " ", "-", "\n", "-", "\r", "-",
	)
	name = replacer.Replace(name)
	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = strings.TrimRight(name[:50], "-.")
	}

	if name == "" {
		name = "transcript"
	}

	return name
}

// GenerateExportPath returns ~/Downloads/grantdesk-<title>-<timestamp>.<ext>
func GenerateExportPath(title, ext string) string {
	filename := fmt.Sprintf("grantdesk-%s-%s.%s", SanitizeFilename(title), time.Now().Format("20060102-150405"), ext)
	return filepath.Join(config.GetDownloadsDir(), filename)
}

// ExportJSON writes t as indented JSON.
func ExportJSON(t Transcript, exportPath string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return writeExport(exportPath, data)
}

// ExportMarkdown writes t as a readable Markdown document.
func ExportMarkdown(t Transcript, exportPath string) error {
	return writeExport(exportPath, []byte(RenderMarkdown(t)))
}

func RenderMarkdown(t Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "- Thread: `%s`\n", t.ThreadID)
	if t.GrantID != "" {
		fmt.Fprintf(&b, "- Grant: `%s`\n", t.GrantID)
	}
	fmt.Fprintf(&b, "- Exported: %s\n", t.ExportedAt.Format(time.RFC1123))

	for _, m := range t.Messages {
		speaker := "Assistant"
		if m.Sender == string(model.SenderUser) {
			speaker = "You"
		}
		fmt.Fprintf(&b, "\n## %s", speaker)
		if !m.Timestamp.IsZero() {
			fmt.Fprintf(&b, " (%s)", m.Timestamp.Format("15:04"))
		}
		b.WriteString("\n\n")
		b.WriteString(m.Text)
		b.WriteString("\n")
		if m.ToolCall != "" {
			fmt.Fprintf(&b, "\n> Awaiting approval for `%s`\n", m.ToolCall)
		}
	}
	return b.String()
}

func writeExport(exportPath string, data []byte) error {
	// 0700/0600: transcripts may contain business details
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// MessageMatch represents a search result within a conversation
type MessageMatch struct {
	MessageIndex int
	Sender       model.Sender
	Content      string
	Preview      string
	Timestamp    time.Time
	Score        int
}

const previewWidth = 100

type messageSource []model.Message

func (s messageSource) String(i int) string { return s[i].Text }
func (s messageSource) Len() int            { return len(s) }

// SearchMessages fuzzy-matches query against every message, best match first.
func SearchMessages(messages []model.Message, query string) []MessageMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return []MessageMatch{}
	}

	results := fuzzy.FindFrom(query, messageSource(messages))
	matches := make([]MessageMatch, 0, len(results))
	for _, r := range results {
		msg := messages[r.Index]
		matches = append(matches, MessageMatch{
			MessageIndex: r.Index,
			Sender:       msg.Sender,
			Content:      msg.Text,
			Preview:      Preview(msg.Text, previewWidth),
			Timestamp:    msg.Timestamp,
			Score:        r.Score,
		})
	}
	return matches
}

// Preview flattens text onto one line and truncates it to width cells.
func Preview(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if runewidth.StringWidth(text) > width {
		return runewidth.Truncate(text, width, "...")
	}
	return text
}
