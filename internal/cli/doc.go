// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli holds terminal helpers shared by the chatdeck commands: TTY
// and color detection, the --json response envelope and width-aware tables.
package cli
