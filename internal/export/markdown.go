// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/transcript"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown with YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown.
func (e *MarkdownExporter) Export(chat model.Chat) ([]byte, error) {
	if err := validate(chat); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title(chat)))
		fmt.Fprintf(&sb, "id: %s\n", chat.ID)
		if !chat.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", chat.CreatedAt.Format(time.RFC3339))
		}
		if !chat.UpdatedAt.IsZero() {
			fmt.Fprintf(&sb, "updated: %s\n", chat.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(chat.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: chatdeck\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title(chat)))

	for i, msg := range chat.Messages {
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", msg.Role.DisplayName(), formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", msg.Role.DisplayName())
		}
		sb.WriteString(e.formatParts(msg.Parts))
		if i < len(chat.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from chatdeck on %s*\n", e.options.now().Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) formatParts(parts model.Parts) string {
	var sb strings.Builder
	for _, p := range parts {
		switch p := p.(type) {
		case model.TextPart:
			if t := strings.TrimSpace(p.Text); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n\n")
			}
		case model.ReasoningPart:
			if !e.options.IncludeReasoning {
				continue
			}
			text := strings.TrimSpace(transcript.ReasoningText(p))
			if text == "" {
				continue
			}
			sb.WriteString("<details>\n<summary>Reasoning</summary>\n\n")
			sb.WriteString(quote(text))
			sb.WriteString("\n\n</details>\n\n")
		case model.ToolInvocationPart:
			sb.WriteString(formatTool(p))
		}
	}
	return sb.String()
}

func formatTool(p model.ToolInvocationPart) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Tool**: `%s`\n\n", p.ToolName)
	if len(p.Args) > 0 {
		args, isJSON := transcript.FormatPayload(p.Args)
		sb.WriteString("**Input**:\n")
		sb.WriteString(fence(lang(isJSON), args))
		sb.WriteString("\n\n")
	}
	if p.HasResult() {
		res, isJSON := transcript.FormatPayload(p.Result)
		sb.WriteString("**Result**:\n")
		sb.WriteString(fence(lang(isJSON), res))
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("*No result*\n\n")
	}
	return sb.String()
}

func lang(isJSON bool) string {
	if isJSON {
		return "json"
	}
	return ""
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "\n", " ")
	return r.Replace(s)
}

// escapeYAML quotes values that YAML would otherwise misread.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
