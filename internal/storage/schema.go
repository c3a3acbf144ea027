// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"time"

	"gorm.io/datatypes"
)

// =============================================================================
// IDENTITY TABLES
// =============================================================================

type User struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Email         *string `gorm:"uniqueIndex"`
	EmailVerified *time.Time
	Image         string

	Accounts       []Account       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Sessions       []Session       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Authenticators []Authenticator `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Chats          []Chat          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Account links a user to an external identity provider.
type Account struct {
	UserID            string `gorm:"not null;index"`
	Type              string `gorm:"not null"`
	Provider          string `gorm:"primaryKey"`
	ProviderAccountID string `gorm:"primaryKey"`
	RefreshToken      *string
	AccessToken       *string
	ExpiresAt         *int64
	TokenType         *string
	Scope             *string
	IDToken           *string
	SessionState      *string
}

type Session struct {
	SessionToken string    `gorm:"primaryKey"`
	UserID       string    `gorm:"not null;index"`
	Expires      time.Time `gorm:"not null"`
}

// VerificationToken is a one-time magic-link token.
type VerificationToken struct {
	Identifier string    `gorm:"primaryKey"`
	Token      string    `gorm:"primaryKey"`
	Expires    time.Time `gorm:"not null"`
}

// Authenticator is a WebAuthn credential.
type Authenticator struct {
	CredentialID         string `gorm:"primaryKey;uniqueIndex"`
	UserID               string `gorm:"primaryKey"`
	ProviderAccountID    string `gorm:"not null"`
	CredentialPublicKey  string `gorm:"not null"`
	Counter              int    `gorm:"not null"`
	CredentialDeviceType string `gorm:"not null"`
	CredentialBackedUp   bool   `gorm:"not null"`
	Transports           *string
}

// =============================================================================
// CHAT TABLES
// =============================================================================

type Chat struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index:idx_chats_user_updated,priority:1"`
	Title     string    `gorm:"not null;default:'New Chat'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index:idx_chats_user_updated,priority:2"`

	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

type Message struct {
	ID        string         `gorm:"primaryKey"`
	ChatID    string         `gorm:"not null;index:idx_messages_chat_created,priority:1"`
	Role      string         `gorm:"not null"`
	Parts     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index:idx_messages_chat_created,priority:2"`
}

// allModels lists every table in creation order.
func allModels() []any {
	return []any{
		&User{}, &Account{}, &Session{}, &VerificationToken{}, &Authenticator{}, &Chat{}, &Message{},
	}
}
