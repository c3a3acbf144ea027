// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import "github.com/jeranaias/chatdeck/internal/model"

// PartKey identifies one part of one message.
type PartKey struct {
	MessageID string
	Index     int
}

// Disclosure is the open state of a collapsible part. The automatic state
// follows the part's liveness; a manual toggle holds until liveness changes.
type Disclosure struct {
	seen bool
	live bool
	open bool
}

// sync applies an automatic transition when liveness changes.
func (d *Disclosure) sync(live bool) {
	if d.seen && d.live == live {
		return
	}
	d.seen = true
	d.live = live
	d.open = live
}

// Open reports whether the part is expanded.
func (d *Disclosure) Open() bool {
	return d.open
}

// Live reports whether the part is the live tail of a streaming response.
func (d *Disclosure) Live() bool {
	return d.live
}

// Toggle flips the part manually.
func (d *Disclosure) Toggle() {
	d.open = !d.open
}

// disclosure returns the state for key, creating it collapsed.
func (r *Renderer) disclosure(key PartKey) *Disclosure {
	d, ok := r.disclosures[key]
	if !ok {
		d = &Disclosure{}
		r.disclosures[key] = d
	}
	return d
}

// Disclosure returns the state of a part seen by a previous render.
func (r *Renderer) Disclosure(key PartKey) (*Disclosure, bool) {
	d, ok := r.disclosures[key]
	return d, ok
}

// Toggle flips the disclosure of a part. It returns false when the part has
// not been rendered yet or is not collapsible.
func (r *Renderer) Toggle(key PartKey) bool {
	d, ok := r.disclosures[key]
	if !ok {
		return false
	}
	d.Toggle()
	return true
}

// LastCollapsible returns the most recent reasoning or tool part.
func LastCollapsible(msgs []model.Message) (PartKey, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		parts := msgs[i].Parts
		for j := len(parts) - 1; j >= 0; j-- {
			switch parts[j].(type) {
			case model.ReasoningPart, model.ToolInvocationPart:
				return PartKey{MessageID: msgs[i].ID, Index: j}, true
			}
		}
	}
	return PartKey{}, false
}
