// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the persistence HTTP API behind the chat client.
//
// Every chat route is scoped to one user. The user comes from a bearer
// session token or, for trusted local setups, the x-user-id header; a bearer
// token wins when both are sent. Chats owned by someone else look exactly like
// chats that do not exist (404).
//
// # Routes
//
//	GET    /health
//	GET    /api/models
//	GET    /api/chats?userId=
//	POST   /api/chats
//	GET    /api/chats/{id}
//	PATCH  /api/chats/{id}
//	DELETE /api/chats/{id}
//	POST   /api/chats/{id}/messages
//	POST   /api/auth/email
//	POST   /api/auth/verify
//	GET    /api/auth/session
//	DELETE /api/auth/session
//
// # Usage
//
//	srv := server.New(cfg.Server, store, authService, admins, registry, log)
//	go srv.ListenAndServe()
//	defer srv.Shutdown(ctx)
package server
