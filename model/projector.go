package model

import "grantdesk/client"

// RowView selects how a row is drawn.
type RowView int

const (
	ViewBubble RowView = iota
	ViewDecision
	ViewPlaceholder
)

// Row is one renderable line item. Key is the message index, or len(messages)
// for the loading placeholder, so keys are stable across re-projections.
type Row struct {
	Key      int
	Sender   Sender
	View     RowView
	Text     string
	ToolCall *client.ToolCall
}

// DisplayModel is the ordered list of rows to draw.
type DisplayModel struct {
	Rows    []Row
	Loading bool
}

// Project maps the log and loading flag to rows. It never mutates messages
// and returns equal output for equal input.
func Project(messages []Message, loading bool) DisplayModel {
	rows := make([]Row, 0, len(messages)+1)
	for i, m := range messages {
		row := Row{Key: i, Sender: m.Sender, View: ViewBubble, Text: m.Text}
		if m.Kind == KindApprovalRequest {
			row.View = ViewDecision
			if m.ToolCall != nil {
				call := *m.ToolCall
				row.ToolCall = &call
			}
		}
		rows = append(rows, row)
	}
	if loading {
		rows = append(rows, Row{Key: len(messages), Sender: SenderAssistant, View: ViewPlaceholder})
	}
	return DisplayModel{Rows: rows, Loading: loading}
}

// PendingDecision returns the decision row, if the last row is one.
func (d DisplayModel) PendingDecision() (Row, bool) {
	for i := len(d.Rows) - 1; i >= 0; i-- {
		switch d.Rows[i].View {
		case ViewDecision:
			return d.Rows[i], true
		case ViewPlaceholder:
			continue
		default:
			return Row{}, false
		}
	}
	return Row{}, false
}
