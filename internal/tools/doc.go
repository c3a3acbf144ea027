// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the functions a model may call while answering.
//
// Tools are described by a parameter Schema that is sent to the provider as
// JSON Schema, and executed by name through Registry.Run with the raw JSON
// arguments the model produced. The returned payload is JSON and is both fed
// back to the model and shown in the transcript.
//
// # Key Types
//
//   - Tool: name, description, parameters and executor
//   - ToolExecutor: the per-tool execution logic
//   - Result: outcome of one execution
//   - Registry: tools by name
//
// # Available Tools
//
//   - current_time: the current time in an IANA timezone
//   - web_search: DuckDuckGo HTML search, no API key needed
package tools
