// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/chatlist"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/transcript"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshTranscript()
		return m, nil

	case ChangedMsg:
		cmd := m.sync()
		return m, tea.Batch(cmd, m.bridge.wait())

	case SentMsg:
		return m.handleSent(msg)

	case CopiedMsg:
		if msg.Err != nil {
			m.log.Warn("copy failed", "error", msg.Err)
			return m, m.setNotice("Copy failed: " + msg.Err.Error())
		}
		return m, m.setNotice("Copied to clipboard")

	case ActionErrMsg:
		m.log.Warn("action failed", "op", msg.Op, "error", msg.Err)
		if msg.Op == "reload" {
			return m, m.setNotice("Reload failed: " + msg.Err.Error())
		}
		return m, nil

	case NoticeExpiredMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sync reads fresh snapshots and follows route changes.
func (m *Model) sync() tea.Cmd {
	m.view = m.ctl.View()
	m.list = m.chats.State()
	cmd := m.followRoute()
	m.sidebar.SetChats(m.list.Chats)
	m.sidebar.Loading = m.list.Loading
	m.sidebar.Active = m.view.Key.ChatID
	m.pickSpinner()
	m.refreshTranscript()
	return cmd
}

// pickSpinner shows the line spinner until the first token arrives.
func (m *Model) pickSpinner() {
	frames := styles.DotsSpinner.Bubbles()
	if m.view.Status == model.StatusSubmitted {
		frames = styles.LineSpinner.Bubbles()
	}
	m.spinner.Spinner = frames
}

// followRoute opens the chat named by the current route. The home route
// shows a fresh draft unless the draft is already open.
func (m *Model) followRoute() tea.Cmd {
	route := m.router.Current()
	if route == m.route {
		return nil
	}
	m.route = route
	if id, ok := chatlist.ChatIDFromRoute(route); ok {
		if id == m.view.Key.ChatID {
			return nil
		}
		m.log.Debug("opening chat", "chat_id", id)
		return openCmd(m.ctx, m.ctl, id)
	}
	if m.draft == "" || m.view.Key.ChatID != m.draft {
		m.draft = m.ctl.StartNew().ChatID
		m.view = m.ctl.View()
	}
	return nil
}

func (m *Model) listed(chatID string) bool {
	for _, c := range m.list.Chats {
		if c.ID == chatID {
			return true
		}
	}
	return false
}

// handleSent moves a freshly created chat from the home route to its own
// route once the server knows it.
func (m Model) handleSent(msg SentMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Debug("send ended with error", "chat_id", msg.Key.ChatID, "error", msg.Err)
	}
	m.list = m.chats.State()
	if m.route == chatlist.HomeRoute && m.view.Key == msg.Key && m.listed(msg.Key.ChatID) {
		m.draft = ""
		m.router.Navigate(chatlist.ChatRoute(msg.Key.ChatID))
	}
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.Visible {
		return m.handlePickerKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctl.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss):
		m.ctl.DismissError()
		m.chats.DismissError()
		m.notice = ""
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, createCmd(m.ctx, m.chats)

	case key.Matches(msg, m.keys.Delete):
		id := m.deleteTarget()
		if id == "" {
			return m, nil
		}
		return m, deleteCmd(m.ctx, m.chats, id)

	case key.Matches(msg, m.keys.Stop):
		if m.ctl.Stop() {
			return m, m.setNotice("Stopped")
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if k, ok := transcript.LastCollapsible(m.view.Messages); ok {
			m.renderer.Toggle(k)
			m.refreshTranscript()
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		last, ok := transcript.LastCopyable(m.view.Messages, m.view.Status)
		if !ok {
			return m, m.setNotice("Nothing to copy")
		}
		return m, copyCmd(m.copyFn, last)

	case key.Matches(msg, m.keys.PickModel):
		m.picker.Show(m.ctl.Models(), m.view.Model)
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		return m, reloadCmd(m.ctx, m.ctl)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.MoveDown()
	case key.Matches(msg, m.keys.Open):
		if c, ok := m.sidebar.Selected(); ok {
			m.router.Navigate(chatlist.ChatRoute(c.ID))
			m.toggleFocus()
		}
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Dismiss), key.Matches(msg, m.keys.PickModel):
		m.picker.Hide()
	case key.Matches(msg, m.keys.Up):
		m.picker.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.picker.MoveDown()
	case key.Matches(msg, m.keys.Open):
		info, ok := m.picker.Choose()
		if !ok {
			return m, nil
		}
		if err := m.ctl.SetModel(info.ID); err != nil {
			return m, m.setNotice(err.Error())
		}
		m.view = m.ctl.View()
		return m, m.setNotice("Model: " + info.Name)
	case key.Matches(msg, m.keys.Quit):
		m.ctl.Stop()
		return m, tea.Quit
	}
	return m, nil
}

// submit sends the typed text. Enter does nothing while a response is in
// flight or the chat is loading; the text stays in the input.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.view.Status.Busy() || m.view.Loading {
		return m, nil
	}
	m.input.Reset()
	m.viewport.GotoBottom()
	return m, sendCmd(m.ctx, m.ctl, m.view.Key, text)
}

func (m *Model) toggleFocus() {
	if m.focus == FocusInput {
		m.focus = FocusSidebar
		m.input.Blur()
	} else {
		m.focus = FocusInput
		m.input.Focus()
	}
	m.sidebar.Focused = m.focus == FocusSidebar
}

// deleteTarget is the chat under the sidebar cursor when the sidebar has
// focus, otherwise the open chat if it has been saved.
func (m *Model) deleteTarget() string {
	if m.focus == FocusSidebar {
		if c, ok := m.sidebar.Selected(); ok {
			return c.ID
		}
		return ""
	}
	if m.listed(m.view.Key.ChatID) {
		return m.view.Key.ChatID
	}
	return ""
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	return noticeExpiry(m.noticeSeq)
}

// errorText is the inline error line, if any.
func (m *Model) errorText() string {
	if m.view.Err != nil {
		return m.view.Err.Error()
	}
	if m.list.Err != nil {
		var ve *api.ValidationError
		if errors.As(m.list.Err, &ve) && ve.Unauthorized() {
			return "chat list: sign in with `chatdeck login`"
		}
		return "chat list: " + m.list.Err.Error()
	}
	return ""
}
