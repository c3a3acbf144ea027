// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Markdown is the glamour style name matching the terminal
	Markdown string

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar        lipgloss.Style
	SidebarFocused lipgloss.Style
	SidebarTitle   lipgloss.Style
	ChatItem       lipgloss.Style
	ChatItemActive lipgloss.Style
	ChatSkeleton   lipgloss.Style
	SidebarEmpty   lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	Transcript        lipgloss.Style
	TranscriptFocused lipgloss.Style
	UserLabel         lipgloss.Style
	AssistantLabel    lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	Input        lipgloss.Style
	InputFocused lipgloss.Style
	StatusBar    lipgloss.Style
	ModelBadge   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	ErrorLine    lipgloss.Style
}

// NewTheme creates a theme. mode is "auto", "dark" or "light".
func NewTheme(mode string) *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}
	switch mode {
	case "dark":
		t.IsDark = true
	case "light":
		t.IsDark = false
	default:
		t.IsDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(t.IsDark)

	switch {
	case t.ColorProfile == termenv.Ascii:
		t.Markdown = "notty"
	case t.IsDark:
		t.Markdown = "dark"
	default:
		t.Markdown = "light"
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	// Sidebar
	t.Sidebar = pane.Padding(0, 1)
	t.SidebarFocused = t.Sidebar.BorderForeground(FocusRing)
	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		MarginBottom(1)
	t.ChatItem = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.ChatItemActive = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)
	t.ChatSkeleton = lipgloss.NewStyle().
		Foreground(Overlay)
	t.SidebarEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Transcript
	t.Transcript = pane
	t.TranscriptFocused = pane.BorderForeground(FocusRing)
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	// Input
	t.Input = pane.Padding(0, 1)
	t.InputFocused = t.Input.BorderForeground(FocusRing)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ModelBadge = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.ErrorLine = lipgloss.NewStyle().
		Foreground(Rose).
		Padding(0, 1)
}
