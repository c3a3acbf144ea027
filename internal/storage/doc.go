// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage is the relational persistence layer behind the chatdeck API.
//
// Tables cover users and their auth credentials (accounts, sessions,
// verification tokens, authenticators), chats and messages. Deleting a user
// deletes their chats, and deleting a chat deletes its messages.
//
// # Key Types
//
//   - Store: chat, message, user and session operations over gorm
//   - ErrNotFound: returned for missing rows and for rows owned by someone else
//
// # Usage
//
//	store, err := storage.Open("sqlite", "/var/lib/chatdeck/chatdeck.db", log)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	chats, err := store.ListChats(ctx, userID)
package storage
