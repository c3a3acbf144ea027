// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeranaias/chatdeck/internal/model"
)

// =============================================================================
// TRANSPORT
// =============================================================================

// Request is one response to produce.
type Request struct {
	// Model is a registry id
	Model string

	// Messages is the transcript so far, oldest first
	Messages []model.Message

	// System is an optional system prompt
	System string
}

// Transport streams a response. The returned error covers problems detected
// before streaming starts; later problems arrive as a Failure event.
type Transport interface {
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is one step of a streamed response.
type Event interface {
	event()
}

// TextDelta is more answer text.
type TextDelta struct {
	Text string
}

// ReasoningDelta is more reasoning text.
type ReasoningDelta struct {
	Text string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResult is the payload returned by a tool call.
type ToolResult struct {
	ID     string
	Result json.RawMessage
}

// Finish ends a successful response.
type Finish struct {
	Reason string
}

// Failure ends a response that could not be completed. Whatever was
// streamed before it stays valid.
type Failure struct {
	Err error
}

func (e Failure) Error() string {
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e Failure) Unwrap() error {
	return e.Err
}

func (TextDelta) event()      {}
func (ReasoningDelta) event() {}
func (ToolCall) event()       {}
func (ToolResult) event()     {}
func (Finish) event()         {}
func (Failure) event()        {}

// Fold applies ev to acc. Finish and Failure do not change the message.
func Fold(acc *model.Accumulator, ev Event) error {
	switch e := ev.(type) {
	case TextDelta:
		acc.AppendText(e.Text)
	case ReasoningDelta:
		acc.AppendReasoning(e.Text)
	case ToolCall:
		acc.AddToolCall(e.ID, e.Name, e.Args)
	case ToolResult:
		return acc.SetToolResult(e.ID, e.Result)
	case Finish, Failure:
	default:
		return fmt.Errorf("unknown stream event %T", ev)
	}
	return nil
}

// send delivers ev unless ctx is done first.
func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
