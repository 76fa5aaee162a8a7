package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func decodeBody(t *testing.T, r *http.Request, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(v))
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "default", baseURL: "", want: DefaultBaseURL},
		{name: "trailing slash trimmed", baseURL: "http://api.example:8000/", want: "http://api.example:8000"},
		{name: "https", baseURL: "https://grants.example.org", want: "https://grants.example.org"},
		{name: "bad scheme", baseURL: "ftp://example.org", wantErr: true},
		{name: "unparseable", baseURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
			assert.Equal(t, DefaultTimeout, c.Timeout())
		})
	}
}

func TestSendChatOk(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		decodeBody(t, r, &got)
		_, _ = io.WriteString(w, `{"status":"ok","response":"hi"}`)
	})

	reply, err := c.SendChat(context.Background(), ChatRequest{Message: "hello", ThreadID: "abc123def"})
	require.NoError(t, err)
	assert.Equal(t, OkReply{Text: "hi"}, reply)

	assert.Equal(t, map[string]any{"message": "hello", "thread_id": "abc123def"}, got,
		"empty action and feedback_text are omitted")
}

func TestSendChatWithoutStatusIsOk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":"plain","tool_used":"None"}`)
	})

	reply, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	require.NoError(t, err)
	assert.Equal(t, OkReply{Text: "plain"}, reply)
}

func TestSendChatRequiresApproval(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"status": "requires_approval",
			"response": "I want to run book_flight",
			"tool_call": {"name": "book_flight", "args": {"to": "BLR", "seats": 2}}
		}`)
	})

	reply, err := c.SendChat(context.Background(), ChatRequest{Message: "book a flight", ThreadID: "t"})
	require.NoError(t, err)

	approval, ok := reply.(ApprovalReply)
	require.True(t, ok, "expected ApprovalReply, got %T", reply)
	assert.Equal(t, "I want to run book_flight", approval.ReplyText())
	assert.Equal(t, "book_flight", approval.ToolCall.Name)
	assert.Equal(t, "BLR", approval.ToolCall.Args["to"])
	assert.Equal(t, float64(2), approval.ToolCall.Args["seats"])
}

func TestSendChatApprovalWithoutToolCall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"requires_approval","response":"?"}`)
	})

	_, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "chat", te.Op)
	assert.Contains(t, te.Error(), "without tool_call")
}

func TestSendChatMissingResponse(t *testing.T) {
	bodies := map[string]string{
		"null":         `null`,
		"empty object": `{}`,
		"status only":  `{"status":"ok"}`,
		"approval":     `{"status":"requires_approval","tool_call":{"name":"send_email","args":{}}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})

			reply, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
			assert.Nil(t, reply)
			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "chat", te.Op)
			assert.Contains(t, te.Error(), "missing response")
		})
	}
}

func TestSendChatEmptyResponseIsOk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","response":""}`)
	})

	reply, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	require.NoError(t, err)
	assert.Equal(t, OkReply{Text: ""}, reply)
}

func TestSendChatResumeAndFeedbackBodies(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		decodeBody(t, r, &body)
		bodies = append(bodies, body)
		_, _ = io.WriteString(w, `{"status":"ok","response":"done"}`)
	})

	ctx := context.Background()
	_, err := c.SendChat(ctx, ChatRequest{Action: ActionResume, ThreadID: "t"})
	require.NoError(t, err)
	_, err = c.SendChat(ctx, ChatRequest{Action: ActionFeedback, FeedbackText: "too expensive", ThreadID: "t"})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"action": "resume", "thread_id": "t"}, bodies[0])
	assert.Equal(t, map[string]any{"action": "feedback", "feedback_text": "too expensive", "thread_id": "t"}, bodies[1])
}

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{name: "message", req: ChatRequest{Message: "hi", ThreadID: "t"}},
		{name: "resume", req: ChatRequest{Action: ActionResume, ThreadID: "t"}},
		{name: "feedback", req: ChatRequest{Action: ActionFeedback, FeedbackText: "no", ThreadID: "t"}},
		{name: "missing thread", req: ChatRequest{Message: "hi"}, wantErr: true},
		{name: "empty", req: ChatRequest{ThreadID: "t"}, wantErr: true},
		{name: "blank message", req: ChatRequest{Message: "  ", ThreadID: "t"}, wantErr: true},
		{name: "resume with message", req: ChatRequest{Action: ActionResume, Message: "hi", ThreadID: "t"}, wantErr: true},
		{name: "feedback with message", req: ChatRequest{Action: ActionFeedback, Message: "hi", ThreadID: "t"}, wantErr: true},
		{name: "unknown action", req: ChatRequest{Action: "retry", ThreadID: "t"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSendChatInvalidRequestNeverHitsNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.SendChat(context.Background(), ChatRequest{ThreadID: "t"})
	require.Error(t, err)
	assert.False(t, IsTransportError(err))
	assert.False(t, called)
}

func TestTransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantDetail string
	}{
		{name: "string detail", status: 500, body: `{"detail":"System not initialized."}`, wantStatus: 500, wantDetail: "System not initialized."},
		{name: "validation detail", status: 422, body: `{"detail":[{"loc":["body","urls"],"msg":"field required"}]}`, wantStatus: 422, wantDetail: `[{"loc":["body","urls"],"msg":"field required"}]`},
		{name: "plain text", status: 502, body: "Bad Gateway\n", wantStatus: 502, wantDetail: "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.wantStatus, te.StatusCode)
			assert.Equal(t, tt.wantDetail, te.Detail)
			assert.True(t, strings.HasSuffix(te.URL, "/chat"))
		})
	}
}

func TestTransportErrorMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":`)
	})

	_, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "malformed response body")
}

func TestTransportErrorDetailTruncatedOnRuneBoundary(t *testing.T) {
	detail := "a" + strings.Repeat("é", 200)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
	})

	_, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, utf8.ValidString(te.Detail))
	assert.True(t, strings.HasSuffix(te.Detail, "..."))
	assert.True(t, strings.HasPrefix(detail, strings.TrimSuffix(te.Detail, "...")))
	assert.LessOrEqual(t, len(te.Detail), maxDetailLen+3)
}

func TestTransportErrorConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url)
	require.NoError(t, err)

	_, err = c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.NotNil(t, errors.Unwrap(te))
}

func TestTransportErrorTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.SendChat(context.Background(), ChatRequest{Message: "x", ThreadID: "t"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout())
}

func TestIngest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "scheme.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4 fake", string(data))
		_, _ = io.WriteString(w, `{"chunks_added": 42}`)
	})

	reply, err := c.Ingest(context.Background(), "/home/me/docs/scheme.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, 42, reply.ChunksAdded)
}

func TestIngestFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"unsupported file type"}`, http.StatusUnsupportedMediaType)
	})

	_, err := c.Ingest(context.Background(), "notes.exe", strings.NewReader("MZ"))
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ingest", te.Op)
	assert.Equal(t, "unsupported file type", te.Detail)
}

func TestAskGrant(t *testing.T) {
	var got GrantQuestion
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grant-qa", r.URL.Path)
		decodeBody(t, r, &got)
		_, _ = io.WriteString(w, `{"answer":"Up to 10 lakhs.","sources":["scheme.pdf p.3"]}`)
	})

	answer, err := c.AskGrant(context.Background(), GrantQuestion{GrantID: "g-7", Question: "How much?", ThreadID: "t"})
	require.NoError(t, err)
	assert.Equal(t, "Up to 10 lakhs.", answer.Answer)
	assert.Equal(t, []string{"scheme.pdf p.3"}, answer.Sources)
	assert.Equal(t, GrantQuestion{GrantID: "g-7", Question: "How much?", ThreadID: "t"}, got)

	_, err = c.AskGrant(context.Background(), GrantQuestion{Question: "?", ThreadID: "t"})
	assert.Error(t, err)
}

func TestScrape(t *testing.T) {
	var got map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		decodeBody(t, r, &got)
		_, _ = io.WriteString(w, `{"status":"success","message":"2 sites queued","files_queued":5}`)
	})

	reply, err := c.Scrape(context.Background(), []string{" https://a.example/grants ", "", "http://b.example"})
	require.NoError(t, err)
	assert.True(t, reply.Succeeded())
	assert.Equal(t, 5, reply.FilesQueued)
	assert.Equal(t, []string{"https://a.example/grants", "http://b.example"}, got["urls"])
}

func TestNormalizeURLs(t *testing.T) {
	_, err := NormalizeURLs([]string{"", "  "})
	assert.Error(t, err)

	_, err = NormalizeURLs([]string{"example.com"})
	assert.Error(t, err)

	urls, err := NormalizeURLs([]string{"https://x.example/a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.example/a"}, urls)
}

func validProfile() SMEProfile {
	return SMEProfile{
		Size:                 "Small",
		UdyamRegistered:      true,
		Sector:               "Manufacturing",
		FinancialPerformance: "Cash profit",
		LocationState:        "Telangana",
		ProjectValue:         2500000,
		ProjectNeed:          "solar panels",
	}
}

func TestMatchGrants(t *testing.T) {
	var got map[string]map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		decodeBody(t, r, &got)
		_, _ = io.WriteString(w, `{
			"matches": [
				{"id": 1, "title": "Solar Rooftop Subsidy", "status": "High Match"},
				{"id": "4:abc", "title": "Green Tech Grant", "status": "Medium Match"}
			],
			"top_match_checklist": "1. Udyam certificate"
		}`)
	})

	reply, err := c.MatchGrants(context.Background(), validProfile())
	require.NoError(t, err)
	require.Len(t, reply.Matches, 2)
	assert.Equal(t, GrantID("1"), reply.Matches[0].ID)
	assert.Equal(t, GrantID("4:abc"), reply.Matches[1].ID)
	assert.Equal(t, "1. Udyam certificate", reply.TopMatchChecklist)

	profile := got["sme_profile"]
	assert.Equal(t, "Small", profile["sme_size"])
	assert.Equal(t, true, profile["udyam_status"])
	assert.Equal(t, "solar panels", profile["project_need_description"])
}

func TestSMEProfileValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *SMEProfile)
	}{
		{name: "bad size", mutate: func(p *SMEProfile) { p.Size = "Large" }},
		{name: "bad sector", mutate: func(p *SMEProfile) { p.Sector = "Mining" }},
		{name: "no state", mutate: func(p *SMEProfile) { p.LocationState = " " }},
		{name: "zero value", mutate: func(p *SMEProfile) { p.ProjectValue = 0 }},
		{name: "no need", mutate: func(p *SMEProfile) { p.ProjectNeed = "" }},
	}

	assert.NoError(t, validProfile().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"active","system":"SME Grant Matcher"}`)
	})

	reply, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HealthReply{Status: "active", System: "SME Grant Matcher"}, reply)
}

func TestGrantIDUnmarshal(t *testing.T) {
	var ids []GrantID
	require.NoError(t, json.Unmarshal([]byte(`[1, "abc", 12.5, null]`), &ids))
	assert.Equal(t, []GrantID{"1", "abc", "12.5", ""}, ids)

	var id GrantID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}
