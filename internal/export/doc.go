// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved chats to Markdown, JSON or HTML documents.
//
// # Key Types
//
//   - Exporter: converts a model.Chat to bytes
//   - Options: metadata, timestamps, reasoning and theme switches
//
// # Supported Formats
//
//   - Markdown: YAML front matter, one heading per message
//   - JSON: the chat as the API serves it
//   - HTML: standalone page with embedded CSS
//
// # Usage
//
//	exp, err := export.ForFormat("html", export.DefaultOptions())
//	path, err := export.ExportToFile(chat, exp, ".")
package export
