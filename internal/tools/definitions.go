// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownTool is returned when a model calls a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool is a callable function offered to the model.
type Tool struct {
	// Name is the identifier the model calls, e.g. "web_search"
	Name string

	// Description tells the model when to use the tool
	Description string

	// Schema defines the tool's parameters
	Schema Schema

	// Executor handles the actual execution
	Executor ToolExecutor
}

// Schema defines a tool's parameters.
type Schema struct {
	Parameters []Parameter
}

// Parameter defines a single tool parameter.
type Parameter struct {
	Name string

	// Type is "string", "number", "boolean" or "array"
	Type string

	Required    bool
	Description string

	// Default is used when the parameter is omitted
	Default interface{}

	// Enum restricts a string parameter to fixed values
	Enum []string
}

// JSONSchema renders the parameters as a JSON Schema object.
func (s Schema) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Parameters))
	required := []string{}
	for _, p := range s.Parameters {
		prop := map[string]interface{}{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Type == "array" {
			prop["items"] = map[string]interface{}{"type": "string"}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// =============================================================================
// TOOL EXECUTOR INTERFACE
// =============================================================================

// ToolExecutor is the execution logic of one tool. Failures the model should
// see are reported in Result.Error; the returned error is for cancellation
// and other conditions that abort the whole turn.
type ToolExecutor interface {
	Execute(ctx context.Context, params map[string]interface{}) (Result, error)
}

// Result holds the outcome of a tool execution.
type Result struct {
	Success bool

	// Output is a plain-text result
	Output string

	// Data is a structured result. It takes precedence over Output.
	Data interface{}

	// Error is the failure message shown to the model
	Error string

	Duration time.Duration

	// MatchCount for search tools
	MatchCount int
}

// ValidationError is a tool call whose arguments do not fit the schema.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Message)
}

// =============================================================================
// TOOL REGISTRY
// =============================================================================

// Registry holds the available tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a registry with the built-in tools.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.RegisterBuiltins()
	return r
}

// NewEmptyRegistry creates a registry with no tools.
func NewEmptyRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// RegisterBuiltins registers all built-in tools.
func (r *Registry) RegisterBuiltins() {
	r.Register(CurrentTimeTool())
	r.Register(WebSearchTool())
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// All returns the tools sorted by name.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
