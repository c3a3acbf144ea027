// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/chatlist"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// SkeletonRows is how many placeholder rows show while the list loads.
const SkeletonRows = 4

// EmptyListText is shown when the user has no chats.
const EmptyListText = "No conversations yet"

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar lists the user's chats, most recent first.
type Sidebar struct {
	Chats   []model.ChatSummary
	Active  string // id of the open chat
	Cursor  int
	Loading bool
	Focused bool
	Width   int
	Height  int
	theme   *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme, Width: chatlist.LabelWidth + 8}
}

// SetChats replaces the list, keeping the cursor on the same chat when it
// is still present.
func (s *Sidebar) SetChats(chats []model.ChatSummary) {
	var current string
	if s.Cursor >= 0 && s.Cursor < len(s.Chats) {
		current = s.Chats[s.Cursor].ID
	}
	s.Chats = chats
	s.Cursor = 0
	for i, c := range chats {
		if c.ID == current {
			s.Cursor = i
			break
		}
	}
}

// MoveUp moves the cursor one row up.
func (s *Sidebar) MoveUp() {
	if s.Cursor > 0 {
		s.Cursor--
	}
}

// MoveDown moves the cursor one row down.
func (s *Sidebar) MoveDown() {
	if s.Cursor < len(s.Chats)-1 {
		s.Cursor++
	}
}

// Selected returns the chat under the cursor.
func (s *Sidebar) Selected() (model.ChatSummary, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Chats) {
		return model.ChatSummary{}, false
	}
	return s.Chats[s.Cursor], true
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n\n")

	switch {
	case s.Loading && len(s.Chats) == 0:
		row := s.theme.ChatSkeleton.Render(strings.Repeat("░", chatlist.LabelWidth))
		for i := 0; i < SkeletonRows; i++ {
			b.WriteString(row)
			b.WriteString("\n")
		}
	case len(s.Chats) == 0:
		b.WriteString(s.theme.SidebarEmpty.Render(EmptyListText))
	default:
		start, chats := s.visible()
		for i, c := range chats {
			b.WriteString(s.row(c, start+i == s.Cursor))
			b.WriteString("\n")
		}
	}

	style := s.theme.Sidebar
	if s.Focused {
		style = s.theme.SidebarFocused
	}
	style = style.Width(s.Width)
	if s.Height > 0 {
		style = style.Height(s.Height)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

func (s *Sidebar) row(c model.ChatSummary, cursor bool) string {
	prefix := "  "
	if cursor && s.Focused {
		prefix = "> "
	}
	label := prefix + chatlist.Label(c.Title)
	if c.ID == s.Active {
		return s.theme.ChatItemActive.Render(label)
	}
	return s.theme.ChatItem.Render(label)
}

// visible returns the window of chats that fits, scrolled so the cursor
// stays in view, and the index of its first row.
func (s *Sidebar) visible() (int, []model.ChatSummary) {
	rows := s.Height - 4
	if rows <= 0 || len(s.Chats) <= rows {
		return 0, s.Chats
	}
	start := 0
	if s.Cursor >= rows {
		start = s.Cursor - rows + 1
	}
	return start, s.Chats[start : start+rows]
}

// RenderedWidth returns how wide the sidebar renders, borders included.
func (s *Sidebar) RenderedWidth() int {
	return lipgloss.Width(s.View())
}
