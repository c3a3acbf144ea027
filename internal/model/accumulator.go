// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator folds streamed deltas into one assistant message. Parts keep
// the order in which they first appeared. Adjacent deltas of the same kind
// extend the last part instead of starting a new one.
//
// An Accumulator is not safe for concurrent use; one stream owns it.
type Accumulator struct {
	msg   Message
	tools map[string]int // tool call id -> part index
}

// NewAccumulator starts an empty assistant message for chatID.
func NewAccumulator(chatID string) *Accumulator {
	return &Accumulator{
		msg:   NewMessage(chatID, RoleAssistant),
		tools: make(map[string]int),
	}
}

// ID returns the id of the message being built.
func (a *Accumulator) ID() string {
	return a.msg.ID
}

// AppendText adds streamed text.
func (a *Accumulator) AppendText(delta string) {
	if delta == "" {
		return
	}
	if n := len(a.msg.Parts); n > 0 {
		if last, ok := a.msg.Parts[n-1].(TextPart); ok {
			last.Text += delta
			a.msg.Parts[n-1] = last
			return
		}
	}
	a.msg.Parts = append(a.msg.Parts, TextPart{Text: delta})
}

// AppendReasoning adds streamed reasoning text.
func (a *Accumulator) AppendReasoning(delta string) {
	if delta == "" {
		return
	}
	if n := len(a.msg.Parts); n > 0 {
		if last, ok := a.msg.Parts[n-1].(ReasoningPart); ok {
			last.Reasoning += delta
			details := append([]ReasoningDetail(nil), last.Details...)
			if d := len(details); d > 0 && details[d-1].Type == "text" {
				details[d-1].Text += delta
			} else {
				details = append(details, ReasoningDetail{Type: "text", Text: delta})
			}
			last.Details = details
			a.msg.Parts[n-1] = last
			return
		}
	}
	a.msg.Parts = append(a.msg.Parts, ReasoningPart{
		Reasoning: delta,
		Details:   []ReasoningDetail{{Type: "text", Text: delta}},
	})
}

// AddToolCall records an invocation in state call.
func (a *Accumulator) AddToolCall(id, name string, args json.RawMessage) {
	a.tools[id] = len(a.msg.Parts)
	a.msg.Parts = append(a.msg.Parts, ToolInvocationPart{
		ToolCallID: id,
		ToolName:   name,
		State:      ToolStateCall,
		Args:       cloneRaw(args),
	})
}

// SetToolResult attaches a result to an earlier call, in place.
func (a *Accumulator) SetToolResult(id string, result json.RawMessage) error {
	idx, ok := a.tools[id]
	if !ok {
		return &PartError{Message: fmt.Sprintf("tool result for unknown call %q", id)}
	}
	part := a.msg.Parts[idx].(ToolInvocationPart)
	part.State = ToolStateResult
	part.Result = cloneRaw(result)
	if !part.HasResult() {
		// a result state always carries a payload
		part.Result = json.RawMessage(`""`)
	}
	a.msg.Parts[idx] = part
	return nil
}

// Empty reports whether nothing has been accumulated.
func (a *Accumulator) Empty() bool {
	return len(a.msg.Parts) == 0
}

// Message returns a snapshot of the message built so far. Later deltas do
// not affect a returned snapshot.
func (a *Accumulator) Message() Message {
	return a.msg.Clone()
}
