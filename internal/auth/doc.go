// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth resolves who is making a request.
//
// Identity travels explicitly in a context.Context (WithUser / UserFrom)
// rather than as global state. Sign-in is by magic link: RequestLink stores a
// one-time token for an email address, Verify consumes it and returns a
// signed session token.
//
// # Key Types
//
//   - Service: magic-link sign-in and session verification
//   - Issuer: HS256 session tokens
//   - ValidationError: input rejected locally, before any request is sent
package auth
