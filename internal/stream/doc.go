// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream produces an assistant response as a sequence of events.
//
// A Transport turns a conversation into a channel of Events. The channel is
// closed when the response ends: after a Finish, after a Failure, or without
// either when the context is cancelled. Fold applies events to a
// model.Accumulator so the response can be rendered while it grows.
//
// # Key Types
//
//   - Transport: anything that can stream a response
//   - OpenAITransport: OpenAI-compatible chat completions with tool calling
//   - Scripted: replays fixed events, for tests and offline demos
//   - Event: TextDelta, ReasoningDelta, ToolCall, ToolResult, Finish, Failure
package stream
