// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea model for the chatdeck screen.

The model does not own any state that outlives a frame. The chat list
store, the page controller and the router hold the truth; their listeners
poke a one-slot channel and the model reads fresh snapshots when the
resulting ChangedMsg arrives. Blocking store calls run inside tea.Cmds.

# Key Types

  - Model: the screen, built with New(Options)
  - KeyMap: bindings, with context-aware hints for the status bar
  - ChangedMsg, SentMsg, CopiedMsg: messages produced by commands

# Usage

	m := chat.New(chat.Options{
		Controller: ctl,
		Chats:      chats,
		Router:     router,
		Theme:      styles.NewTheme(cfg.UI.Theme),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()

# Keys

Enter sends (alt+enter adds a line), ctrl+n creates a chat, ctrl+d deletes
one, tab moves focus between the input and the sidebar, ctrl+o toggles the
latest reasoning or tool block, ctrl+y copies the latest reply, ctrl+s
stops a streaming response, ctrl+p picks the model, esc dismisses errors
and ctrl+c quits.
*/
package chat
