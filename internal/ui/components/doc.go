// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual pieces of the chatdeck TUI.

Components are plain structs with a View method. They hold no references
to stores; the chat model copies state into them before rendering.

# Key Types

Sidebar lists chats with skeleton rows while loading and a placeholder
when empty. StatusBar shows the conversation status, the selected model
and key hints. ModelPicker is the overlay used to switch models.

# Usage

	bar := components.NewStatusBar(theme)
	bar.Status = view.Status
	bar.Width = width
	out := bar.View()
*/
package components
