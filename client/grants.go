package client

import (
	"context"
	"fmt"
	"strings"
)

// AskGrant asks a question scoped to a single grant document.
func (c *Client) AskGrant(ctx context.Context, q GrantQuestion) (GrantAnswer, error) {
	if q.GrantID == "" {
		return GrantAnswer{}, fmt.Errorf("grant_id is required")
	}
	if strings.TrimSpace(q.Question) == "" {
		return GrantAnswer{}, fmt.Errorf("question is required")
	}

	var answer GrantAnswer
	if err := c.postJSON(ctx, "grant-qa", "/grant-qa", q, &answer); err != nil {
		return GrantAnswer{}, err
	}
	return answer, nil
}

// MatchGrants submits an SME profile and returns the ranked matches.
func (c *Client) MatchGrants(ctx context.Context, profile SMEProfile) (MatchReply, error) {
	if err := profile.Validate(); err != nil {
		return MatchReply{}, fmt.Errorf("invalid profile: %w", err)
	}

	var reply MatchReply
	if err := c.postJSON(ctx, "match-grants", "/match-grants", matchRequest{Profile: profile}, &reply); err != nil {
		return MatchReply{}, err
	}
	return reply, nil
}
