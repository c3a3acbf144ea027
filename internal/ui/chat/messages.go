// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdeck/internal/chatlist"
	"github.com/jeranaias/chatdeck/internal/controller"
	"github.com/jeranaias/chatdeck/internal/model"
)

// NoticeDuration is how long a status bar notice stays up.
const NoticeDuration = 3 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// ChangedMsg signals that a store, the controller or the route changed.
// The model reads fresh snapshots when it arrives.
type ChangedMsg struct{}

// SentMsg reports the end of a Send.
type SentMsg struct {
	Key controller.Key
	Err error
}

// CopiedMsg reports a clipboard copy.
type CopiedMsg struct {
	Err error
}

// ActionErrMsg carries the error of a list mutation or open.
type ActionErrMsg struct {
	Op  string
	Err error
}

// NoticeExpiredMsg clears the notice with the same sequence number.
type NoticeExpiredMsg struct {
	Seq int
}

// =============================================================================
// CHANGE BRIDGE
// =============================================================================

// bridge turns listener callbacks into Bubble Tea messages. Signals are
// coalesced: the model always reads the latest state, so one pending
// signal is enough.
type bridge struct {
	ch chan struct{}
}

func newBridge() *bridge {
	return &bridge{ch: make(chan struct{}, 1)}
}

func (b *bridge) poke() {
	select {
	case b.ch <- struct{}{}:
	default:
	}
}

func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		<-b.ch
		return ChangedMsg{}
	}
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func loadChatsCmd(ctx context.Context, store *chatlist.Store) tea.Cmd {
	return func() tea.Msg {
		// failures land in the store's state
		_ = store.Load(ctx)
		return nil
	}
}

func openCmd(ctx context.Context, ctl *controller.Controller, chatID string) tea.Cmd {
	return func() tea.Msg {
		// failures land in the view
		_ = ctl.Open(ctx, chatID)
		return nil
	}
}

func reloadCmd(ctx context.Context, ctl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctl.Reload(ctx); err != nil {
			return ActionErrMsg{Op: "reload", Err: err}
		}
		return nil
	}
}

func sendCmd(ctx context.Context, ctl *controller.Controller, key controller.Key, text string) tea.Cmd {
	return func() tea.Msg {
		return SentMsg{Key: key, Err: ctl.Send(ctx, text)}
	}
}

func createCmd(ctx context.Context, store *chatlist.Store) tea.Cmd {
	return func() tea.Msg {
		if _, err := store.Create(ctx, ""); err != nil {
			return ActionErrMsg{Op: "create chat", Err: err}
		}
		return nil
	}
}

func deleteCmd(ctx context.Context, store *chatlist.Store, chatID string) tea.Cmd {
	return func() tea.Msg {
		if err := store.Delete(ctx, chatID); err != nil {
			return ActionErrMsg{Op: "delete chat", Err: err}
		}
		return nil
	}
}

func copyCmd(copyFn func(model.Message) error, msg model.Message) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: copyFn(msg)}
	}
}

func noticeExpiry(seq int) tea.Cmd {
	return tea.Tick(NoticeDuration, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{Seq: seq}
	})
}
