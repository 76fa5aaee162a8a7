package model

import (
	"fmt"

	"grantdesk/client"
)

type ApprovalState int

const (
	Idle ApprovalState = iota
	AwaitingDecision
	CapturingRejectionReason
)

func (s ApprovalState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingDecision:
		return "awaiting-decision"
	case CapturingRejectionReason:
		return "capturing-rejection-reason"
	default:
		return fmt.Sprintf("ApprovalState(%d)", int(s))
	}
}

// DefaultRejectionReason is sent when the user rejects without typing a reason.
const DefaultRejectionReason = "User rejected the action."

// Approval tracks the single outstanding tool-call approval, if any.
type Approval struct {
	state ApprovalState
	call  client.ToolCall
}

func (a *Approval) State() ApprovalState {
	return a.state
}

// Pending reports whether a tool call is waiting on the user.
func (a *Approval) Pending() bool {
	return a.state != Idle
}

// ToolCall returns the call under review. Only meaningful while Pending.
func (a *Approval) ToolCall() client.ToolCall {
	return a.call
}

func (a *Approval) begin(call client.ToolCall) error {
	if a.state != Idle {
		return fmt.Errorf("%w: approval already %s", ErrInvalidState, a.state)
	}
	a.state = AwaitingDecision
	a.call = call
	return nil
}

func (a *Approval) expect(state ApprovalState) error {
	if a.state != state {
		return fmt.Errorf("%w: expected approval %s, got %s", ErrInvalidState, state, a.state)
	}
	return nil
}

func (a *Approval) transition(from, to ApprovalState) error {
	if err := a.expect(from); err != nil {
		return err
	}
	a.state = to
	if to == Idle {
		a.call = client.ToolCall{}
	}
	return nil
}

func approvedText(tool string) string {
	return "✅ Action Approved: " + tool
}

func rejectedText(reason string) string {
	return "❌ Action Rejected: " + reason
}
