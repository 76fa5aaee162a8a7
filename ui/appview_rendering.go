package ui

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"grantdesk/client"
	"grantdesk/config"
	"grantdesk/model"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

const codeBar = "┃"

// updateViewportContent redraws the conversation from the projected rows.
func (a *AppView) updateViewportContent(gotoBottom bool) {
	messages := a.session.Messages()
	view := a.session.View()

	if len(view.Rows) == 0 {
		a.viewport.SetContent(DimStyle.Render("No messages yet. Ask about a grant or press Alt+U to upload a document."))
		return
	}

	var content strings.Builder
	lines := 0

	for _, row := range view.Rows {
		a.rowOffsets[row.Key] = lines

		ts := time.Now()
		if row.Key < len(messages) {
			ts = messages[row.Key].Timestamp
		}
		timestamp := DimStyle.Render(ts.Format("[15:04]"))

		highlightPrefix := ""
		if row.Key == a.highlightedMessageIdx {
			highlightPrefix = HighlightStyle.Render(">>> ")
		}

		var block string
		switch row.View {
		case model.ViewPlaceholder:
			block = fmt.Sprintf("%s %s\n%s Thinking...\n\n", timestamp, AssistantStyle.Render("Assistant"), a.loadingSpinner.View())

		case model.ViewDecision:
			block = formatDecisionMessage(timestamp, buildDecisionContent(row.Text, row.ToolCall))

		default:
			if row.Sender == model.SenderUser {
				block = formatUserMessage(highlightPrefix, timestamp, UserStyle.Render("You"), row.Text)
			} else {
				body := row.Text
				if r, ok := a.rendered[row.Key]; ok && r.source == row.Text && r.width == a.width {
					body = r.rendered
				}
				if strings.HasPrefix(row.Text, "⚠️") {
					body = ErrorStyle.Render(row.Text)
				}
				block = fmt.Sprintf("%s%s %s\n%s\n\n", highlightPrefix, timestamp, AssistantStyle.Render("Assistant"), strings.TrimRight(body, "\n"))
			}
		}

		content.WriteString(block)
		lines += strings.Count(block, "\n")
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// pendingRenders starts a Markdown render for every assistant bubble whose
// cached rendering is missing or stale.
func (a *AppView) pendingRenders() tea.Cmd {
	if a.width == 0 {
		return nil
	}

	var cmds []tea.Cmd
	for i, m := range a.session.Messages() {
		if m.Sender != model.SenderAssistant || m.Kind != model.KindText || strings.HasPrefix(m.Text, "⚠️") {
			continue
		}
		if r, ok := a.rendered[i]; ok && r.source == m.Text && r.width == a.width {
			continue
		}
		req := renderRequest{source: m.Text, width: a.width}
		if a.renderPending[i] == req {
			continue
		}
		a.renderPending[i] = req
		cmds = append(cmds, renderMarkdownAsync(i, m.Text, a.width))
	}
	return tea.Batch(cmds...)
}

func renderMarkdownAsync(key int, content string, width int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rendered := renderMarkdown(content, width)
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Rendered markdown for row %d (%d chars) in %v", key, len(content), time.Since(start))
		}
		return markdownRenderedMsg{Key: key, Source: content, Width: width, Rendered: rendered}
	}
}

// renderMarkdown renders content for a terminal of the given width. Autolink
// is disabled so URLs stay plain text the terminal can detect.
func renderMarkdown(content string, width int) string {
	content = preprocessLinks(content)

	renderWidth := width - 4
	if renderWidth < 20 {
		renderWidth = 20
	}

	p := parser.NewWithExtensions(markdown.Extensions() &^ parser.Autolink)
	doc := p.Parse([]byte(content))
	rendered := gomarkdown.Render(doc, markdown.NewRenderer(renderWidth, 0))

	return postProcessMarkdown(string(rendered), width)
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = fixInlineCode(rendered)
	rendered = colorURLs(rendered)
	return frameCodeBlocks(rendered, width)
}

// preprocessLinks turns [text](url) into a bare url
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode swaps go-term-markdown's blue-background inline code for red text
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBar) {
			lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		}
	}
	return strings.Join(lines, "\n")
}

// frameCodeBlocks replaces the left bar go-term-markdown draws on code lines
// with a labelled rule above and below the block.
func frameCodeBlocks(s string, width int) string {
	darkGray := "\x1b[90m"
	reset := "\x1b[0m"

	ruleWidth := width - 4
	if ruleWidth < 10 {
		ruleWidth = 10
	}
	topRule := func() string {
		label := "[code]"
		left := (ruleWidth - len(label)) / 2
		right := ruleWidth - len(label) - left
		return darkGray + strings.Repeat("━", left) + reset + label + darkGray + strings.Repeat("━", right) + reset
	}
	bottomRule := darkGray + strings.Repeat("━", ruleWidth) + reset

	var result []string
	inCodeBlock := false

	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, codeBar) {
			if !inCodeBlock {
				inCodeBlock = true
				result = append(result, "", topRule(), "")
			}
			result = append(result, stripCodeBlockPrefix(line))
			continue
		}
		if inCodeBlock {
			result = append(result, "", bottomRule, "")
			inCodeBlock = false
		}
		result = append(result, line)
	}

	if inCodeBlock {
		result = append(result, "", bottomRule, "")
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	after := idx + len(codeBar)
	if after < len(line) && line[after] == ' ' {
		after++
	}
	return line[after:]
}

func formatUserMessage(highlightPrefix, timestamp, role, content string) string {
	bar := "\x1b[32;1m" + codeBar + "\x1b[0m"

	var result strings.Builder
	fmt.Fprintf(&result, "%s%s %s %s\n", highlightPrefix, bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")

	return result.String()
}

// buildDecisionContent lays out an approval request: the assistant's
// explanation, the tool and its arguments, then the key hints.
func buildDecisionContent(text string, call *client.ToolCall) string {
	const maxWidth = 60

	var content strings.Builder
	content.WriteString("🔒 Approval Required\n\n")

	if strings.TrimSpace(text) != "" {
		content.WriteString(wordWrap(text, maxWidth))
		content.WriteString("\n\n")
	}

	if call != nil {
		content.WriteString(wordWrapWithIndent(call.Name, "╰── Tool: ", maxWidth))

		keys := make([]string, 0, len(call.Args))
		for k := range call.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			content.WriteString(wordWrapWithIndent(formatArg(call.Args[k]), "╰── "+k+": ", maxWidth))
		}
	}

	content.WriteString("\n")
	content.WriteString("\x1b[32;1m[y]\x1b[0m Approve    ")
	content.WriteString("\x1b[31;1m[n]\x1b[0m Reject")

	return content.String()
}

func formatArg(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// formatDecisionMessage draws content behind a yellow bar, like formatUserMessage
func formatDecisionMessage(timestamp, content string) string {
	bar := "\x1b[33;1m│\x1b[0m"

	var result strings.Builder
	fmt.Fprintf(&result, "%s %s %s\n", bar, timestamp, DecisionStyle.Render("Assistant needs approval"))
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")

	return result.String()
}

// wordWrapWithIndent wraps text to maxWidth, indenting continuation lines
// to line up after prefix.
func wordWrapWithIndent(text string, prefix string, maxWidth int) string {
	prefixLen := len([]rune(stripANSI(prefix)))
	availableWidth := maxWidth - prefixLen

	if availableWidth <= 0 {
		return prefix + text + "\n"
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return prefix + "\n"
	}

	var result strings.Builder
	var currentLine strings.Builder
	indent := strings.Repeat(" ", prefixLen)
	isFirstLine := true

	flush := func() {
		if isFirstLine {
			result.WriteString(prefix)
			isFirstLine = false
		} else {
			result.WriteString(indent)
		}
		result.WriteString(currentLine.String())
		result.WriteString("\n")
		currentLine.Reset()
	}

	for _, word := range words {
		testLen := currentLine.Len()
		if testLen > 0 {
			testLen++
		}
		testLen += len(word)

		if testLen > availableWidth && currentLine.Len() > 0 {
			flush()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		flush()
	}

	return result.String()
}

// stripANSI removes ANSI escape codes for accurate length calculation
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
