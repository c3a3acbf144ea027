// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// PART VARIANTS
// =============================================================================

// PartType is the wire tag of a message part.
type PartType string

const (
	PartText           PartType = "text"
	PartReasoning      PartType = "reasoning"
	PartToolInvocation PartType = "tool-invocation"
)

// Part is one typed fragment of a message. The set of implementations is
// closed; add a kind by adding a type here and a case to every switch.
type Part interface {
	Type() PartType
	part()
}

// TextPart is markdown text.
type TextPart struct {
	Text string
}

// ReasoningPart is the model's reasoning trace.
type ReasoningPart struct {
	Reasoning string
	Details   []ReasoningDetail
}

// ReasoningDetail is a text segment or a redacted blob.
type ReasoningDetail struct {
	Type string `json:"type"` // "text" or "redacted"
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// ToolState is the progress of a tool invocation.
type ToolState string

const (
	// ToolStateCall means the tool was invoked and may still be pending.
	ToolStateCall ToolState = "call"
	// ToolStateResult means a result payload is attached.
	ToolStateResult ToolState = "result"
)

// ToolInvocationPart records a function call requested by the assistant.
// Args and Result hold JSON; a Result is always present in ToolStateResult.
type ToolInvocationPart struct {
	ToolCallID string
	ToolName   string
	State      ToolState
	Args       json.RawMessage
	Result     json.RawMessage
}

func (TextPart) Type() PartType           { return PartText }
func (ReasoningPart) Type() PartType      { return PartReasoning }
func (ToolInvocationPart) Type() PartType { return PartToolInvocation }

func (TextPart) part()           {}
func (ReasoningPart) part()      {}
func (ToolInvocationPart) part() {}

// HasResult reports whether a non-null result is attached.
func (p ToolInvocationPart) HasResult() bool {
	trimmed := bytes.TrimSpace(p.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// =============================================================================
// ERRORS
// =============================================================================

// PartError reports a malformed part or message.
type PartError struct {
	Message string
}

func (e *PartError) Error() string {
	return e.Message
}

// =============================================================================
// PARTS
// =============================================================================

// Parts is the ordered part list of a message. Order is significant and is
// never changed after production.
type Parts []Part

// Validate enforces per-part invariants.
func (ps Parts) Validate() error {
	for i, p := range ps {
		switch p := p.(type) {
		case TextPart, ReasoningPart:
		case ToolInvocationPart:
			if p.ToolName == "" {
				return &PartError{Message: fmt.Sprintf("part %d: tool invocation without a tool name", i)}
			}
			switch p.State {
			case ToolStateCall:
			case ToolStateResult:
				if !p.HasResult() {
					return &PartError{Message: fmt.Sprintf("part %d: tool invocation in state result without a result", i)}
				}
			default:
				return &PartError{Message: fmt.Sprintf("part %d: unknown tool state %q", i, p.State)}
			}
		case nil:
			return &PartError{Message: fmt.Sprintf("part %d: nil part", i)}
		}
	}
	return nil
}

// Clone deep-copies the parts.
func (ps Parts) Clone() Parts {
	if ps == nil {
		return nil
	}
	out := make(Parts, len(ps))
	for i, p := range ps {
		switch p := p.(type) {
		case ReasoningPart:
			if p.Details != nil {
				p.Details = append([]ReasoningDetail(nil), p.Details...)
			}
			out[i] = p
		case ToolInvocationPart:
			p.Args = cloneRaw(p.Args)
			p.Result = cloneRaw(p.Result)
			out[i] = p
		default:
			out[i] = p
		}
	}
	return out
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

// =============================================================================
// JSON ENCODING
// =============================================================================

type partJSON struct {
	Type           PartType            `json:"type"`
	Text           *string             `json:"text,omitempty"`
	Reasoning      *string             `json:"reasoning,omitempty"`
	Details        []ReasoningDetail   `json:"details,omitempty"`
	ToolInvocation *toolInvocationJSON `json:"toolInvocation,omitempty"`
}

type toolInvocationJSON struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	State      ToolState       `json:"state"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// MarshalJSON encodes parts as tagged objects.
func (ps Parts) MarshalJSON() ([]byte, error) {
	out := make([]partJSON, 0, len(ps))
	for i, p := range ps {
		switch p := p.(type) {
		case TextPart:
			text := p.Text
			out = append(out, partJSON{Type: PartText, Text: &text})
		case ReasoningPart:
			reasoning := p.Reasoning
			out = append(out, partJSON{Type: PartReasoning, Reasoning: &reasoning, Details: p.Details})
		case ToolInvocationPart:
			out = append(out, partJSON{Type: PartToolInvocation, ToolInvocation: &toolInvocationJSON{
				ToolCallID: p.ToolCallID,
				ToolName:   p.ToolName,
				State:      p.State,
				Args:       validRaw(p.Args),
				Result:     validRaw(p.Result),
			}})
		default:
			return nil, &PartError{Message: fmt.Sprintf("part %d: unsupported part type %T", i, p)}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes tagged objects. Unknown tags are an error.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raw []partJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*ps = nil
		return nil
	}
	out := make(Parts, 0, len(raw))
	for i, r := range raw {
		switch r.Type {
		case PartText:
			out = append(out, TextPart{Text: deref(r.Text)})
		case PartReasoning:
			var details []ReasoningDetail
			if len(r.Details) > 0 {
				details = r.Details
			}
			out = append(out, ReasoningPart{Reasoning: deref(r.Reasoning), Details: details})
		case PartToolInvocation:
			if r.ToolInvocation == nil {
				return &PartError{Message: fmt.Sprintf("part %d: missing toolInvocation", i)}
			}
			ti := r.ToolInvocation
			out = append(out, ToolInvocationPart{
				ToolCallID: ti.ToolCallID,
				ToolName:   ti.ToolName,
				State:      ti.State,
				Args:       nonEmptyRaw(ti.Args),
				Result:     nonEmptyRaw(ti.Result),
			})
		default:
			return &PartError{Message: fmt.Sprintf("part %d: unknown part type %q", i, r.Type)}
		}
	}
	*ps = out
	return nil
}

// validRaw keeps valid JSON as-is and quotes anything else, so a partially
// streamed argument string still encodes.
func validRaw(r json.RawMessage) json.RawMessage {
	if len(r) == 0 || json.Valid(r) {
		return r
	}
	quoted, _ := json.Marshal(string(r))
	return quoted
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmptyRaw(r json.RawMessage) json.RawMessage {
	if len(r) == 0 {
		return nil
	}
	return r
}
