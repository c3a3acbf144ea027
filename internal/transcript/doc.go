// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript renders chat messages for the terminal.
//
// Each message part is dispatched on its type: text as markdown (glamour),
// reasoning as a disclosure that opens itself while it is the live tail of a
// streaming response, and tool invocations as a status header with
// pretty-printed arguments and result. Output per message is memoized and
// reused while the message and stream status are unchanged.
//
// # Key Types
//
//   - Renderer: memoizing renderer, owned by the UI goroutine
//   - Disclosure: open/closed state of a reasoning or tool part
//   - ToolStatus: Running, Waiting or Completed
//
// # Usage
//
//	r := transcript.New(transcript.Options{Width: 80, Style: theme.Markdown})
//	out := r.Render(view.Messages, view.Status, view.Loading)
//	if transcript.CanCopy(last, true, view.Status) {
//	    _ = transcript.Copy(last)
//	}
package transcript
