// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"reflect"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// RENDERER
// =============================================================================

// Options configures a Renderer.
type Options struct {
	// Width is the column budget; 0 means 80
	Width int
	// Style is a glamour style name ("auto", "dark", "light", "notty")
	Style string
	// Highlight enables syntax highlighting of JSON payloads
	Highlight bool
}

// Stats counts memo hits and misses.
type Stats struct {
	Hits   int
	Misses int
}

type memoEntry struct {
	role    model.Role
	parts   model.Parts
	status  model.Status
	loading bool
	last    bool
	width   int
	open    []bool
	out     string
}

// Renderer turns messages into terminal text. It is owned by a single
// goroutine (the UI loop) and is not safe for concurrent use.
type Renderer struct {
	opts        Options
	md          *glamour.TermRenderer
	mdWidth     int
	memo        map[string]memoEntry
	disclosures map[PartKey]*Disclosure
	stats       Stats
}

// New creates a renderer.
func New(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	return &Renderer{
		opts:        opts,
		memo:        make(map[string]memoEntry),
		disclosures: make(map[PartKey]*Disclosure),
	}
}

// SetWidth changes the column budget. Cached output for the old width is
// not reused.
func (r *Renderer) SetWidth(width int) {
	if width <= 0 {
		width = 80
	}
	r.opts.Width = width
}

// Width returns the column budget.
func (r *Renderer) Width() int {
	return r.opts.Width
}

// Stats returns memo counters.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Render renders a transcript in order, separating messages by a blank
// line. State kept for messages that are no longer present is dropped.
func (r *Renderer) Render(msgs []model.Message, status model.Status, loading bool) string {
	present := make(map[string]struct{}, len(msgs))
	blocks := make([]string, 0, len(msgs))
	for i, m := range msgs {
		present[m.ID] = struct{}{}
		blocks = append(blocks, r.RenderMessage(m, i == len(msgs)-1, status, loading))
	}
	r.prune(present)
	return strings.Join(blocks, "\n\n")
}

// RenderMessage renders one message. Output is reused when the id, role,
// parts (by deep equality), stream status, loading flag and disclosure state
// all match the previous render of the same id.
func (r *Renderer) RenderMessage(msg model.Message, isLast bool, status model.Status, loading bool) string {
	open := r.syncDisclosures(msg, isLast, status)

	if e, ok := r.memo[msg.ID]; ok &&
		e.role == msg.Role &&
		e.status == status &&
		e.loading == loading &&
		e.last == isLast &&
		e.width == r.opts.Width &&
		reflect.DeepEqual(e.open, open) &&
		reflect.DeepEqual(e.parts, msg.Parts) {
		r.stats.Hits++
		return e.out
	}

	r.stats.Misses++
	out := r.renderMessage(msg, isLast, status)
	r.memo[msg.ID] = memoEntry{
		role:    msg.Role,
		parts:   msg.Parts.Clone(),
		status:  status,
		loading: loading,
		last:    isLast,
		width:   r.opts.Width,
		open:    open,
		out:     out,
	}
	return out
}

// syncDisclosures applies automatic transitions and returns the open flag
// of every part (false for parts that do not collapse).
func (r *Renderer) syncDisclosures(msg model.Message, isLast bool, status model.Status) []bool {
	open := make([]bool, len(msg.Parts))
	for i, p := range msg.Parts {
		switch p.(type) {
		case model.ReasoningPart:
			d := r.disclosure(PartKey{MessageID: msg.ID, Index: i})
			d.sync(isLast && i == len(msg.Parts)-1 && status == model.StatusStreaming)
			open[i] = d.open
		case model.ToolInvocationPart:
			d := r.disclosure(PartKey{MessageID: msg.ID, Index: i})
			d.sync(false)
			open[i] = d.open
		}
	}
	return open
}

func (r *Renderer) prune(present map[string]struct{}) {
	for id := range r.memo {
		if _, ok := present[id]; !ok {
			delete(r.memo, id)
		}
	}
	for key := range r.disclosures {
		if _, ok := present[key.MessageID]; !ok {
			delete(r.disclosures, key)
		}
	}
}

// =============================================================================
// MESSAGE LAYOUT
// =============================================================================

var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	otherLabelStyle     = lipgloss.NewStyle().Foreground(styles.TextSecondary).Bold(true)
	hintStyle           = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
)

func (r *Renderer) renderMessage(msg model.Message, isLast bool, status model.Status) string {
	var b strings.Builder
	switch msg.Role {
	case model.RoleUser:
		b.WriteString(userLabelStyle.Render(msg.Role.DisplayName()))
	case model.RoleAssistant:
		b.WriteString(assistantLabelStyle.Render(msg.Role.DisplayName()))
	default:
		b.WriteString(otherLabelStyle.Render(msg.Role.DisplayName()))
	}

	for i, p := range msg.Parts {
		var block string
		switch p := p.(type) {
		case model.TextPart:
			block = r.renderText(p.Text)
		case model.ReasoningPart:
			block = renderReasoning(p, r.disclosures[PartKey{MessageID: msg.ID, Index: i}])
		case model.ToolInvocationPart:
			d := r.disclosures[PartKey{MessageID: msg.ID, Index: i}]
			block = r.renderTool(p, StatusOf(p, isLast, status), d.Open())
		}
		if block == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(block)
	}

	if isLast && CanCopy(msg, isLast, status) && msg.Text() != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("ctrl+y copy"))
	}
	return b.String()
}

// =============================================================================
// MARKDOWN
// =============================================================================

func (r *Renderer) renderText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	md := r.markdown()
	if md == nil {
		return text
	}
	// partial markdown from a live stream is re-rendered whole every time
	out, err := md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// markdown returns a glamour renderer for the current width, or nil when
// none can be built.
func (r *Renderer) markdown() *glamour.TermRenderer {
	if r.md != nil && r.mdWidth == r.opts.Width {
		return r.md
	}
	wrap := r.opts.Width - 4
	if wrap < 20 {
		wrap = 20
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
	switch r.opts.Style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(r.opts.Style))
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	r.md = md
	r.mdWidth = r.opts.Width
	return md
}
