// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller drives the open conversation.
//
// A Controller owns the view of one chat at a time. Transcripts are cached
// per (chat id, user id) and served immediately; entries older than the
// staleness window are refreshed in the background. Every asynchronous
// completion checks that its chat is still the open one before it touches
// the view. Only one response streams at a time.
//
// # Key Types
//
//   - Controller: open, send, stop, model selection
//   - View: snapshot handed to the renderer
//   - Key: cache key (ChatID, UserID)
//   - ViewError: a failure converted to display state, with its Kind
//
// # Usage
//
//	c := controller.New(controller.Options{
//	    Backend:   client,
//	    Transport: transport,
//	    List:      list,
//	    Models:    registry,
//	    UserID:    userID,
//	})
//	c.OnChange(func(v controller.View) { program.Send(v) })
//	_ = c.Open(ctx, chatID)
//	_ = c.Send(ctx, "hello") // blocks until the response settles
package controller
