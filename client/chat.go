package client

import (
	"context"
	"fmt"
)

// SendChat posts one turn to /chat and returns either an OkReply or, when the
// backend wants a tool call approved first, an ApprovalReply.
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chat request: %w", err)
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "chat", "/chat", req, &resp); err != nil {
		return nil, err
	}

	return decodeChatReply(c.baseURL+"/chat", resp)
}

func decodeChatReply(endpoint string, resp chatResponse) (ChatReply, error) {
	if resp.Response == nil {
		return nil, &TransportError{
			Op:         "chat",
			URL:        endpoint,
			StatusCode: 200,
			Err:        fmt.Errorf("malformed response body: missing response"),
		}
	}
	text := *resp.Response

	// Older backends omit status entirely, so everything that is not an
	// approval request is an ordinary answer.
	if resp.Status != StatusRequiresApproval {
		return OkReply{Text: text}, nil
	}

	if resp.ToolCall == nil || resp.ToolCall.Name == "" {
		return nil, &TransportError{
			Op:         "chat",
			URL:        endpoint,
			StatusCode: 200,
			Err:        fmt.Errorf("malformed response body: %s without tool_call", StatusRequiresApproval),
		}
	}

	call := *resp.ToolCall
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return ApprovalReply{Text: text, ToolCall: call}, nil
}
