// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by chatdeck packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with an ellipsis
//   - TruncateTitle: sidebar label truncation (first n runes + "...")
//   - TruncateWidth: display-width aware truncation for terminal cells
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	label := util.TruncateTitle(chat.Title, 18)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
