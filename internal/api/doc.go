// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the chatdeck persistence API.
//
// Every failure is classified so callers can decide how to present it:
//
//   - ErrNotFound: the resource does not exist for this user (HTTP 404)
//   - *NetworkError: the request did not complete, or the server failed (5xx)
//   - *ValidationError: the server rejected the input (other 4xx)
//
// # Usage
//
//	c := api.New(cfg.Client, log)
//	chat, err := c.GetChat(ctx, id)
//	if errors.Is(err, api.ErrNotFound) {
//	    chat = model.EmptyChat(id)
//	}
package api
