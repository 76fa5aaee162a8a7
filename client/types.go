package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ChatAction selects a non-free-text turn on /chat.
type ChatAction string

const (
	ActionResume   ChatAction = "resume"
	ActionFeedback ChatAction = "feedback"
)

// StatusRequiresApproval is the /chat status that pauses a tool call until
// the user approves or rejects it.
const StatusRequiresApproval = "requires_approval"

// ToolCall is the action the backend wants approved.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ChatRequest is the body of POST /chat. A free-text turn sets Message; a
// resume or feedback turn sets Action (and FeedbackText for feedback).
type ChatRequest struct {
	Message      string     `json:"message,omitempty"`
	Action       ChatAction `json:"action,omitempty"`
	FeedbackText string     `json:"feedback_text,omitempty"`
	ThreadID     string     `json:"thread_id"`
}

// Validate checks that exactly one kind of turn is requested.
func (r ChatRequest) Validate() error {
	if r.ThreadID == "" {
		return fmt.Errorf("thread_id is required")
	}
	hasMessage := strings.TrimSpace(r.Message) != ""
	switch r.Action {
	case "":
		if !hasMessage {
			return fmt.Errorf("either message or action is required")
		}
	case ActionResume:
		if hasMessage || r.FeedbackText != "" {
			return fmt.Errorf("resume takes no message or feedback_text")
		}
	case ActionFeedback:
		if hasMessage {
			return fmt.Errorf("feedback takes no message")
		}
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	return nil
}

// ChatReply is either an OkReply or an ApprovalReply.
type ChatReply interface {
	ReplyText() string
	isChatReply()
}

// OkReply is a plain assistant answer.
type OkReply struct {
	Text string
}

// ApprovalReply asks the user to approve ToolCall before the backend runs it.
type ApprovalReply struct {
	Text     string
	ToolCall ToolCall
}

func (r OkReply) ReplyText() string       { return r.Text }
func (r ApprovalReply) ReplyText() string { return r.Text }
func (OkReply) isChatReply()              {}
func (ApprovalReply) isChatReply()        {}

type chatResponse struct {
	Status   string    `json:"status"`
	Response *string   `json:"response"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
}

// IngestReply is the body returned by POST /ingest.
type IngestReply struct {
	ChunksAdded int `json:"chunks_added"`
}

// GrantQuestion is the body of POST /grant-qa.
type GrantQuestion struct {
	GrantID  string `json:"grant_id"`
	Question string `json:"question"`
	ThreadID string `json:"thread_id"`
}

// GrantAnswer is the body returned by POST /grant-qa.
type GrantAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

type scrapeRequest struct {
	URLs []string `json:"urls"`
}

// ScrapeReply is the body returned by POST /scrape.
type ScrapeReply struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	FilesQueued int    `json:"files_queued,omitempty"`
}

// Succeeded reports whether the backend accepted the whole batch.
func (r ScrapeReply) Succeeded() bool {
	return r.Status == "success"
}

// HealthReply is the body returned by GET /.
type HealthReply struct {
	Status string `json:"status"`
	System string `json:"system,omitempty"`
	Model  string `json:"model,omitempty"`
}

// SMEProfile describes the applicant for POST /match-grants.
type SMEProfile struct {
	Size                 string  `json:"sme_size" yaml:"sme_size"`
	UdyamRegistered      bool    `json:"udyam_status" yaml:"udyam_status"`
	Sector               string  `json:"sector_category" yaml:"sector_category"`
	FinancialPerformance string  `json:"financial_performance" yaml:"financial_performance"`
	LocationState        string  `json:"location_state" yaml:"location_state"`
	ProjectValue         float64 `json:"project_value" yaml:"project_value"`
	ProjectNeed          string  `json:"project_need_description" yaml:"project_need_description"`
}

var (
	validSizes   = []string{"Micro", "Small", "Medium"}
	validSectors = []string{"Manufacturing", "Service", "Trading"}
)

// Validate applies the same field constraints the backend enforces.
func (p SMEProfile) Validate() error {
	if !contains(validSizes, p.Size) {
		return fmt.Errorf("sme_size must be one of %s, got %q", strings.Join(validSizes, ", "), p.Size)
	}
	if !contains(validSectors, p.Sector) {
		return fmt.Errorf("sector_category must be one of %s, got %q", strings.Join(validSectors, ", "), p.Sector)
	}
	if strings.TrimSpace(p.LocationState) == "" {
		return fmt.Errorf("location_state is required")
	}
	if p.ProjectValue <= 0 {
		return fmt.Errorf("project_value must be positive")
	}
	if strings.TrimSpace(p.ProjectNeed) == "" {
		return fmt.Errorf("project_need_description is required")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type matchRequest struct {
	Profile SMEProfile `json:"sme_profile"`
}

// GrantID is an opaque grant identifier. The backend has sent both numbers
// and strings, so both decode into a string.
type GrantID string

func (id *GrantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = GrantID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("grant id must be a string or number: %w", err)
	}
	*id = GrantID(n.String())
	return nil
}

// GrantMatch is one ranked grant in a MatchReply.
type GrantMatch struct {
	ID          GrantID  `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status,omitempty"`
	Amount      string   `json:"amount,omitempty"`
	Sector      string   `json:"sector,omitempty"`
	Deadline    string   `json:"deadline,omitempty"`
	Eligibility []string `json:"eligibility,omitempty"`
	Filename    string   `json:"filename,omitempty"`
}

// MatchReply is the body returned by POST /match-grants.
type MatchReply struct {
	Matches           []GrantMatch `json:"matches"`
	TopMatchChecklist string       `json:"top_match_checklist,omitempty"`
}
