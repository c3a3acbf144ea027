// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by every chatdeck layer.
//
// # Key Types
//
//   - Chat, ChatSummary: a conversation owned by one user, with and without messages
//   - Message: one turn, made of ordered typed parts
//   - Part: sealed variant of TextPart, ReasoningPart and ToolInvocationPart
//   - Status: lifecycle of an in-flight response (ready, submitted, streaming, error)
//   - Accumulator: folds streamed deltas into one assistant message
//   - Registry: model identifier to display metadata
//
// # Usage
//
// Render parts with an exhaustive type switch:
//
//	for _, p := range msg.Parts {
//	    switch p := p.(type) {
//	    case model.TextPart:
//	    case model.ReasoningPart:
//	    case model.ToolInvocationPart:
//	    }
//	}
//
// Build an assistant message from a stream:
//
//	acc := model.NewAccumulator(chatID)
//	acc.AppendText("Hel")
//	acc.AppendText("lo")
//	msg := acc.Message()
package model
