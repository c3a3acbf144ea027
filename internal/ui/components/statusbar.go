// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
	"github.com/jeranaias/chatdeck/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is one key hint in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: status, model and key hints. A transient
// notice replaces the hints while set.
type StatusBar struct {
	Status    model.Status
	Loading   bool
	ModelName string
	Notice    string
	Shortcuts []Shortcut
	Spinner   string // current spinner frame, shown while busy
	Width     int
	theme     *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Status: model.StatusReady, Width: 80, theme: theme}
}

// StatusText describes the status the way the status bar shows it.
func StatusText(status model.Status, loading bool) string {
	if loading {
		return "Loading..."
	}
	switch status {
	case model.StatusSubmitted:
		return "Waiting..."
	case model.StatusStreaming:
		return "Streaming..."
	case model.StatusError:
		return "Error"
	default:
		return "Ready"
	}
}

// StatusIcon returns a shape for the status so it reads without color.
func StatusIcon(status model.Status, loading bool) string {
	switch {
	case loading:
		return styles.StatusIndicators.Pending
	case status == model.StatusError:
		return styles.StatusIndicators.Error
	case status.Busy():
		return styles.StatusIndicators.Active
	default:
		return styles.StatusIndicators.Success
	}
}

// View renders the status bar.
func (s *StatusBar) View() string {
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	state := StatusIcon(s.Status, s.Loading) + " " + StatusText(s.Status, s.Loading)
	if (s.Status.Busy() || s.Loading) && s.Spinner != "" {
		state = s.Spinner + " " + StatusText(s.Status, s.Loading)
	}
	parts := []string{state}
	if s.ModelName != "" {
		parts = append(parts, s.theme.ModelBadge.Render(util.TruncateTitle(s.ModelName, 24)))
	}

	left := strings.Join(parts, sep)
	var right string
	if s.Notice != "" {
		right = s.Notice
	} else {
		right = s.renderShortcuts(s.Width - lipgloss.Width(left) - 3)
	}

	line := left
	if right != "" {
		gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
		if gap < 1 {
			gap = 1
		}
		line = left + strings.Repeat(" ", gap) + right
	}
	return s.theme.StatusBar.Width(s.Width).Render(line)
}

// renderShortcuts renders as many hints as fit in budget columns.
func (s *StatusBar) renderShortcuts(budget int) string {
	var out []string
	used := 0
	for _, sc := range s.Shortcuts {
		hint := s.theme.ShortcutKey.Render(sc.Key) + " " + s.theme.ShortcutDesc.Render(sc.Desc)
		w := lipgloss.Width(hint)
		if len(out) > 0 {
			w += 2
		}
		if used+w > budget {
			break
		}
		out = append(out, hint)
		used += w
	}
	return strings.Join(out, "  ")
}
