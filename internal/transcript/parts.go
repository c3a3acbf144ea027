// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// TOOL STATUS
// =============================================================================

// ToolStatus is the visual state of a tool invocation.
type ToolStatus int

const (
	ToolWaiting ToolStatus = iota
	ToolRunning
	ToolCompleted
)

func (s ToolStatus) String() string {
	switch s {
	case ToolRunning:
		return "Running"
	case ToolCompleted:
		return "Completed"
	default:
		return "Waiting"
	}
}

// StatusOf derives the status of a tool part. A call on the latest message
// runs until the stream settles; a call anywhere else is waiting.
func StatusOf(p model.ToolInvocationPart, latest bool, status model.Status) ToolStatus {
	if p.State == model.ToolStateResult {
		return ToolCompleted
	}
	if latest && status != model.StatusReady {
		return ToolRunning
	}
	return ToolWaiting
}

var (
	toolNameStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	toolLabelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary).Bold(true)
	markerStyle    = lipgloss.NewStyle().Foreground(styles.TextMuted)
	reasoningStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	liveStyle      = lipgloss.NewStyle().Foreground(styles.Amber).Italic(true)

	toolStatusStyles = map[ToolStatus]lipgloss.Style{
		ToolWaiting:   lipgloss.NewStyle().Foreground(styles.TextMuted),
		ToolRunning:   lipgloss.NewStyle().Foreground(styles.Amber).Bold(true),
		ToolCompleted: lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true),
	}
)

func marker(open bool) string {
	if open {
		return markerStyle.Render("[-]")
	}
	return markerStyle.Render("[+]")
}

// =============================================================================
// REASONING
// =============================================================================

func renderReasoning(p model.ReasoningPart, d *Disclosure) string {
	open, live := false, false
	if d != nil {
		open, live = d.Open(), d.Live()
	}

	header := reasoningStyle.Render("Reasoning")
	if live {
		header = liveStyle.Render("Thinking...")
	}
	header = marker(open) + " " + header
	if !open {
		return header
	}

	body := ReasoningText(p)
	if body == "" {
		return header
	}
	return header + "\n" + indent(reasoningStyle.Render(body), "  | ")
}

// ReasoningText is the displayed trace. Redacted segments show as
// <redacted>.
func ReasoningText(p model.ReasoningPart) string {
	if len(p.Details) == 0 {
		return p.Reasoning
	}
	var b strings.Builder
	for _, d := range p.Details {
		switch d.Type {
		case "redacted":
			b.WriteString("<redacted>")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// =============================================================================
// TOOL INVOCATION
// =============================================================================

func (r *Renderer) renderTool(p model.ToolInvocationPart, st ToolStatus, open bool) string {
	header := marker(open) + " " + toolNameStyle.Render(p.ToolName) + " " + toolStatusStyles[st].Render(st.String())
	if !open {
		return header
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(indent(toolLabelStyle.Render("Arguments"), "  "))
	b.WriteString("\n")
	b.WriteString(indent(r.payload(p.Args, "(none)"), "    "))
	if p.State == model.ToolStateResult {
		b.WriteString("\n")
		b.WriteString(indent(toolLabelStyle.Render("Result"), "  "))
		b.WriteString("\n")
		b.WriteString(indent(r.payload(p.Result, "(empty)"), "    "))
	}
	return b.String()
}

func (r *Renderer) payload(raw json.RawMessage, empty string) string {
	text, structured := FormatPayload(raw)
	if strings.TrimSpace(text) == "" {
		return markerStyle.Render(empty)
	}
	if structured && r.opts.Highlight {
		return highlightJSON(text)
	}
	return text
}

// FormatPayload pretty-prints a payload as indented JSON when it is a JSON
// object, array, number, boolean or null. A JSON string is shown unquoted.
// Anything else is returned verbatim. The bool reports whether the result
// is structured JSON.
func FormatPayload(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return string(raw), false
	}
	if v := gjson.ParseBytes(trimmed); v.Type == gjson.String {
		return v.Str, false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(raw), false
	}
	return buf.String(), true
}

// highlightJSON applies chroma highlighting for 256-color terminals.
func highlightJSON(code string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
