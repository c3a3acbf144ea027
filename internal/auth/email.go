// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is input rejected locally. It is never sent to the server.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail normalizes an address (NFKC, trimmed, lower case) and checks
// its shape. The normalized address is returned.
func ValidateEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(norm.NFKC.String(email)))
	if normalized == "" {
		return "", &ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailPattern.MatchString(normalized) {
		return "", &ValidationError{Field: "email", Message: "please enter a valid email address"}
	}
	return normalized, nil
}
