// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/transcript"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports chats to a standalone HTML page with embedded CSS.
// Markdown is converted with goldmark, which omits raw HTML from message
// text.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export converts a chat to HTML.
func (e *HTMLExporter) Export(chat model.Chat) ([]byte, error) {
	if err := validate(chat); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title(chat)))
	sb.WriteString("<meta name=\"generator\" content=\"chatdeck\">\n")
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	fmt.Fprintf(&sb, "<header class=\"header\"><h1>%s</h1>\n", html.EscapeString(title(chat)))
	if e.options.IncludeMetadata {
		sb.WriteString("<div class=\"metadata\">")
		if !chat.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "<span><strong>Created:</strong> %s</span>", formatTimestamp(chat.CreatedAt))
		}
		fmt.Fprintf(&sb, "<span><strong>Messages:</strong> %d</span>", len(chat.Messages))
		sb.WriteString("</div>")
	}
	sb.WriteString("</header>\n<main class=\"conversation\">\n")

	for _, msg := range chat.Messages {
		if err := e.renderMessage(&sb, msg); err != nil {
			return nil, err
		}
	}

	sb.WriteString("</main>\n")
	fmt.Fprintf(&sb, "<footer class=\"footer\">Exported from <strong>chatdeck</strong> on %s</footer>\n",
		html.EscapeString(e.options.now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(sb *strings.Builder, msg model.Message) error {
	role := html.EscapeString(string(msg.Role))
	fmt.Fprintf(sb, "<section class=\"message %s\">\n<div class=\"role\">%s", role, html.EscapeString(msg.Role.DisplayName()))
	if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
		fmt.Fprintf(sb, " <time>%s</time>", formatShortTimestamp(msg.CreatedAt))
	}
	sb.WriteString("</div>\n")

	for _, p := range msg.Parts {
		switch p := p.(type) {
		case model.TextPart:
			if err := e.markdown(sb, p.Text); err != nil {
				return err
			}
		case model.ReasoningPart:
			if !e.options.IncludeReasoning {
				continue
			}
			text := strings.TrimSpace(transcript.ReasoningText(p))
			if text == "" {
				continue
			}
			sb.WriteString("<details class=\"reasoning\"><summary>Reasoning</summary>\n")
			if err := e.markdown(sb, text); err != nil {
				return err
			}
			sb.WriteString("</details>\n")
		case model.ToolInvocationPart:
			sb.WriteString("<div class=\"tool\">\n")
			if err := e.markdown(sb, formatTool(p)); err != nil {
				return err
			}
			sb.WriteString("</div>\n")
		}
	}
	sb.WriteString("</section>\n")
	return nil
}

func (e *HTMLExporter) markdown(sb *strings.Builder, src string) error {
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(src), &buf); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	sb.Write(buf.Bytes())
	return nil
}

const css = `<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
.dark-theme {
  --bg: #1a1b26; --panel: #24283b; --border: #414868;
  --text: #c0caf5; --muted: #565f89; --code: #16161e;
  --user: #1f2335; --accent: #7aa2f7;
}
.light-theme {
  --bg: #ffffff; --panel: #f7f8fa; --border: #e1e4e8;
  --text: #24292e; --muted: #6a737d; --code: #f6f8fa;
  --user: #eef2f7; --accent: #0366d6;
}
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6;
  color: var(--text); background: var(--bg); padding: 20px; }
.container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
.header { padding: 28px 32px; border-bottom: 2px solid var(--border); }
.header h1 { font-size: 26px; margin-bottom: 8px; }
.metadata { display: flex; gap: 16px; font-size: 14px; color: var(--muted); }
.conversation { padding: 16px 32px; }
.message { padding: 16px; margin: 12px 0; border-radius: 8px; border: 1px solid var(--border); }
.message.user { background: var(--user); }
.role { font-weight: 700; color: var(--accent); margin-bottom: 8px; }
.role time { font-weight: 400; font-size: 12px; color: var(--muted); }
.message p { margin: 8px 0; }
pre { background: var(--code); padding: 12px; border-radius: 6px; overflow-x: auto; }
code { font-family: "SF Mono", Monaco, "Fira Code", monospace; font-size: 14px; }
.reasoning { color: var(--muted); margin: 8px 0; }
.reasoning summary { cursor: pointer; }
.tool { border-left: 3px solid var(--accent); padding-left: 12px; margin: 8px 0; }
.footer { padding: 16px 32px; font-size: 13px; color: var(--muted); border-top: 1px solid var(--border); }
</style>
`
