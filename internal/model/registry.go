// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"sync"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo is display metadata for a selectable model. Where the model is
// served from is configuration, not metadata.
type ModelInfo struct {
	// ID is the identifier used in requests and in the picker
	ID string `json:"id"`

	Provider    string `json:"provider"`
	Name        string `json:"name"`
	Description string `json:"description"`
	APIVersion  string `json:"apiVersion"`

	// Capabilities such as "reasoning" or "tools"
	Capabilities []string `json:"capabilities"`
}

// Has reports whether the model advertises capability c.
func (m ModelInfo) Has(c string) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// DefaultModel is selected when nothing else is configured.
const DefaultModel = "deepseek"

// Builtin lists the models known without configuration.
var Builtin = []ModelInfo{
	{
		ID:           "deepseek",
		Provider:     "deepseek",
		Name:         "DeepSeek",
		Description:  "General chat with visible reasoning and tool use",
		APIVersion:   "v1",
		Capabilities: []string{"reasoning", "tools"},
	},
}

// Registry maps model identifiers to metadata. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	models       map[string]ModelInfo
	defaultModel string
}

// NewRegistry returns a registry holding the builtin models.
func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]ModelInfo), defaultModel: DefaultModel}
	for _, m := range Builtin {
		r.models[m.ID] = m
	}
	return r
}

// Register adds or replaces a model.
func (r *Registry) Register(info ModelInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[info.ID] = info
}

// Lookup returns the metadata for id.
func (r *Registry) Lookup(id string) (ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

// IDs returns every registered id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every model sorted by id.
func (r *Registry) All() []ModelInfo {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.models[id])
	}
	return out
}

// SetDefault changes the default model. Unknown ids are ignored.
func (r *Registry) SetDefault(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return false
	}
	r.defaultModel = id
	return true
}

// Default returns the default model id.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}
