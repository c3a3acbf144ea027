// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

const (
	// inputLines is the height of the input box, borders excluded
	inputLines = 3
	// chrome is the rows used by borders, header, error and status lines
	chrome = 1 + 1 + 1 + 2 + inputLines + 2

	emptyTranscript   = "Start a conversation. Enter sends, alt+enter adds a line."
	loadingTranscript = "Loading conversation..."
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	m.sidebar.Height = height - 1 - 2
	mainWidth := width - m.sidebar.Width - 2
	if mainWidth < 20 {
		mainWidth = 20
	}

	m.viewport.Width = mainWidth - 2
	m.viewport.Height = height - chrome
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}

	wrap := m.viewport.Width
	if m.wordWrap > 0 && m.wordWrap < wrap {
		wrap = m.wordWrap
	}
	m.renderer.SetWidth(wrap)

	m.input.SetWidth(mainWidth - 4)
	m.status.Width = width
}

// refreshTranscript re-renders the open chat into the viewport, following
// the bottom when the user has not scrolled away.
func (m *Model) refreshTranscript() {
	follow := m.viewport.AtBottom() || m.view.Status.Busy()

	var content string
	switch {
	case m.view.Loading && len(m.view.Messages) == 0:
		content = m.theme.SidebarEmpty.Render(loadingTranscript)
	case len(m.view.Messages) == 0:
		content = m.theme.SidebarEmpty.Render(emptyTranscript)
	default:
		content = m.renderer.Render(m.view.Messages, m.view.Status, m.view.Loading)
	}
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return loadingTranscript
	}

	title := m.view.Title
	if title == "" {
		title = model.DefaultChatTitle
	}
	header := m.theme.SidebarTitle.MarginBottom(0).Render(title)

	body := m.viewport.View()
	if m.picker.Visible {
		body = lipgloss.Place(m.viewport.Width, m.viewport.Height,
			lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	pane := m.theme.Transcript
	if m.focus == FocusInput {
		pane = m.theme.TranscriptFocused
	}
	transcriptPane := pane.Width(m.viewport.Width).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, body))

	errLine := ""
	if text := m.errorText(); text != "" {
		errLine = m.theme.ErrorLine.Render(styles.StatusIndicators.Error + " " + text + "  (esc)")
	}

	inputStyle := m.theme.Input
	if m.focus == FocusInput {
		inputStyle = m.theme.InputFocused
	}
	inputPane := inputStyle.Render(m.input.View())

	main := lipgloss.JoinVertical(lipgloss.Left, transcriptPane, errLine, inputPane)
	screen := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)

	m.status.Status = m.view.Status
	m.status.Loading = m.view.Loading
	m.status.ModelName = m.modelName()
	m.status.Notice = m.notice
	m.status.Spinner = m.spinner.View()
	m.status.Shortcuts = m.keys.Shortcuts(m.focus, m.view.Status.Busy())

	return lipgloss.JoinVertical(lipgloss.Left, screen, m.status.View())
}

func (m Model) modelName() string {
	for _, info := range m.ctl.Models() {
		if info.ID == m.view.Model {
			return info.Name
		}
	}
	return m.view.Model
}
