// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a chat into a document.
type Exporter interface {
	Export(chat model.Chat) ([]byte, error)

	// FileExtension includes the dot, e.g. ".md"
	FileExtension() string

	MimeType() string
}

// Format names an export format on the command line.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds a header with dates and message counts.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// IncludeReasoning keeps reasoning parts; they are dropped otherwise.
	IncludeReasoning bool

	// Theme for HTML export ("light" or "dark")
	Theme string

	// Now stamps the footer; defaults to time.Now
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeReasoning:  true,
		Theme:             "dark",
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// ForFormat returns the exporter for a format name. "md" is accepted for
// markdown.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch Format(strings.ToLower(format)) {
	case FormatMarkdown, "md", "":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	case FormatHTML:
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want markdown, json or html)", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes chat into dir and returns the file path. The file name
// is derived from the chat title and id.
func ExportToFile(chat model.Chat, exporter Exporter, dir string) (string, error) {
	content, err := exporter.Export(chat)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if dir == "" {
		dir = "."
	}

	short := chat.ID
	if len(short) > 8 {
		short = short[:8]
	}
	filename := fmt.Sprintf("chat_%s_%s%s", sanitizeFilename(chat.Title), short, exporter.FileExtension())
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// validate rejects chats that would produce an empty document.
func validate(chat model.Chat) error {
	if chat.ID == "" {
		return fmt.Errorf("chat has no id")
	}
	if len(chat.Messages) == 0 {
		return fmt.Errorf("chat %s has no messages", chat.ID)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names on
// common platforms.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}

// title falls back to the default for untitled chats.
func title(chat model.Chat) string {
	if strings.TrimSpace(chat.Title) == "" {
		return model.DefaultChatTitle
	}
	return chat.Title
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05")
}

// fence wraps code in a fence longer than any backtick run inside it.
func fence(lang, code string) string {
	ticks := "```"
	for strings.Contains(code, ticks) {
		ticks += "`"
	}
	return ticks + lang + "\n" + strings.TrimRight(code, "\n") + "\n" + ticks
}
