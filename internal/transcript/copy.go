// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"errors"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/chatdeck/internal/model"
)

// ErrNothingToCopy is returned by Copy when a message has no text.
var ErrNothingToCopy = errors.New("message has no text to copy")

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// CanCopy reports whether the copy affordance is offered for msg. Only
// assistant messages qualify, and never the last message while a response
// is in flight.
func CanCopy(msg model.Message, isLast bool, status model.Status) bool {
	if msg.Role != model.RoleAssistant {
		return false
	}
	return !(isLast && status.Busy())
}

// CopyText is what Copy puts on the clipboard: text parts joined by blank
// lines.
func CopyText(msg model.Message) string {
	return msg.Text()
}

// Copy writes a message's text to the system clipboard.
func Copy(msg model.Message) error {
	text := CopyText(msg)
	if text == "" {
		return ErrNothingToCopy
	}
	return writeClipboard(text)
}

// LastCopyable returns the most recent assistant message that may be copied.
func LastCopyable(msgs []model.Message, status model.Status) (model.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != model.RoleAssistant {
			continue
		}
		if CanCopy(msgs[i], i == len(msgs)-1, status) {
			return msgs[i], true
		}
		return model.Message{}, false
	}
	return model.Message{}, false
}
