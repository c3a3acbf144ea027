// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"strings"

	"github.com/jeranaias/chatdeck/internal/model"
)

type userKey struct{}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the user carried by ctx.
func UserFrom(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userKey{}).(model.User)
	return u, ok && u.ID != ""
}

// UserID returns the id of the user carried by ctx, or "".
func UserID(ctx context.Context) string {
	u, _ := UserFrom(ctx)
	return u.ID
}

// AdminList is the set of user ids allowed to act on other users' data.
type AdminList map[string]struct{}

// NewAdminList builds an AdminList, ignoring blanks.
func NewAdminList(ids []string) AdminList {
	out := make(AdminList, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

// IsAdmin reports whether userID is on the list.
func (a AdminList) IsAdmin(userID string) bool {
	_, ok := a[userID]
	return ok && userID != ""
}
