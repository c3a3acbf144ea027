// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned for HTTP 404.
var ErrNotFound = errors.New("not found")

// NetworkError is a request that failed in transport or with a server error.
type NetworkError struct {
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server error (%d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError is a request the server refused (4xx other than 404).
type ValidationError struct {
	Op      string
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unauthorized reports whether the server wants a (new) session.
func (e *ValidationError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// errorBody is the JSON error envelope the server sends.
type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
