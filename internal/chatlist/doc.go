// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatlist is the sidebar's view of a user's chats.
//
// The list is fetched once per user and kept most recent first. Mutations
// are applied locally before the request goes out; a failed delete or
// rename is undone in place.
//
// # Key Types
//
//   - Store: the list, its loading flag and last error
//   - Backend: the persistence calls the store needs (api.Client)
//   - Router: the current route, "/" or "/chat/{id}"
//
// # Usage
//
//	router := chatlist.NewRouter()
//	list := chatlist.New(client, router, userID, chatlist.Options{})
//	list.OnChange(func(s chatlist.State) { program.Send(s) })
//	_ = list.Load(ctx)
//	_ = list.Delete(ctx, chatID) // navigates to "/" when chatID is open
package chatlist
