// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// EXECUTION
// =============================================================================

// Run executes the named tool with the model's raw JSON arguments and returns
// the JSON payload to feed back. Tool-level failures come back as
// {"error": "..."} with a nil error so the model can react to them.
func (r *Registry) Run(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	tool := r.Get(name)
	if tool == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	params := map[string]interface{}{}
	if trimmed := strings.TrimSpace(string(args)); trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal([]byte(trimmed), &params); err != nil {
			return nil, &ValidationError{Param: "arguments", Message: "not a JSON object"}
		}
	}
	applyDefaults(tool, params)
	if err := validateParams(tool, params); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := tool.Executor.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res.Payload()
}

// Payload is the JSON form of a result.
func (res Result) Payload() (json.RawMessage, error) {
	var v interface{}
	switch {
	case !res.Success:
		msg := res.Error
		if msg == "" {
			msg = "tool failed"
		}
		v = map[string]string{"error": msg}
	case res.Data != nil:
		v = res.Data
	default:
		v = res.Output
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error encoding tool result: %w", err)
	}
	return out, nil
}

// ErrorPayload is the JSON fed back when a call could not run at all.
func ErrorPayload(err error) json.RawMessage {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

func applyDefaults(tool *Tool, params map[string]interface{}) {
	for _, p := range tool.Schema.Parameters {
		if _, ok := params[p.Name]; !ok && p.Default != nil {
			params[p.Name] = p.Default
		}
	}
}

// validateParams checks required parameters, types and enums.
func validateParams(tool *Tool, params map[string]interface{}) error {
	for _, param := range tool.Schema.Parameters {
		val, exists := params[param.Name]
		if param.Required && (!exists || val == nil) {
			return &ValidationError{Param: param.Name, Message: "required parameter is missing"}
		}
		if !exists || val == nil {
			continue
		}
		if err := validateType(param, val); err != nil {
			return err
		}
		if s, ok := val.(string); ok && len(param.Enum) > 0 && !contains(param.Enum, s) {
			return &ValidationError{Param: param.Name, Message: "must be one of " + strings.Join(param.Enum, ", ")}
		}
	}
	return nil
}

func validateType(param Parameter, val interface{}) error {
	ok := true
	switch param.Type {
	case "string":
		_, ok = val.(string)
	case "number":
		switch val.(type) {
		case int, int64, float64:
		default:
			ok = false
		}
	case "boolean":
		_, ok = val.(bool)
	case "array":
		_, ok = val.([]interface{})
	}
	if !ok {
		return &ValidationError{Param: param.Name, Message: "expected " + param.Type}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// PARAMETER HELPERS
// =============================================================================

func getStringParam(params map[string]interface{}, name string, defaultVal string) string {
	if val, ok := params[name]; ok {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return defaultVal
}

func getIntParam(params map[string]interface{}, name string, defaultVal int) int {
	if val, ok := params[name]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}
