// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	// RoleSystem is only sent to the provider; it is never persisted.
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// Valid reports whether r may be stored in a chat.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleTool
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a response: submitted, then streaming,
// then ready, or error at any point.
type Status string

const (
	StatusReady     Status = "ready"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// Busy reports whether a response is in flight.
func (s Status) Busy() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a chat.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId,omitempty"`
	Role      Role      `json:"role"`
	Parts     Parts     `json:"parts"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(chatID string, role Role, parts ...Part) Message {
	return Message{
		ID:        NewID(),
		ChatID:    chatID,
		Role:      role,
		Parts:     parts,
		CreatedAt: time.Now().UTC(),
	}
}

// NewUserMessage creates a user message with one text part.
func NewUserMessage(chatID, text string) Message {
	return NewMessage(chatID, RoleUser, TextPart{Text: text})
}

// Text joins the message's text parts with blank lines.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok && t.Text != "" {
			texts = append(texts, t.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// Validate checks the role and every part.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return &PartError{Message: "invalid role " + string(m.Role)}
	}
	return m.Parts.Validate()
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	out := m
	out.Parts = m.Parts.Clone()
	return out
}

// NewID returns a new random identifier.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// DefaultChatTitle is used when a chat is created without a title.
const DefaultChatTitle = "New Chat"

// ChatSummary is a chat without its messages, as shown in the sidebar.
type ChatSummary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Chat is a conversation owned by exactly one user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

// Summary drops the messages.
func (c Chat) Summary() ChatSummary {
	return ChatSummary{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// EmptyChat is the state of a chat that does not exist on the server yet.
func EmptyChat(id string) Chat {
	now := time.Now().UTC()
	return Chat{ID: id, Title: DefaultChatTitle, CreatedAt: now, UpdatedAt: now, Messages: []Message{}}
}

// TitleFrom derives a chat title from the first user message.
func TitleFrom(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return DefaultChatTitle
	}
	runes := []rune(line)
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return line
}

// =============================================================================
// USER TYPE
// =============================================================================

// User is an authenticated identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}
