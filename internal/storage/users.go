// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jeranaias/chatdeck/internal/model"
)

// =============================================================================
// USERS
// =============================================================================

// ensureUser inserts a bare user row if id is unknown.
func ensureUser(tx *gorm.DB, id string) error {
	if id == "" {
		return &StoreError{Message: "user id must not be empty"}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&User{ID: id}).Error
}

// EnsureUser makes sure a user row exists for id.
func (s *Store) EnsureUser(ctx context.Context, id string) error {
	return ensureUser(s.db.WithContext(ctx), id)
}

// UpsertUser creates a user or updates the profile fields of an existing one.
// A user without an id is matched by email.
func (s *Store) UpsertUser(ctx context.Context, u model.User) (model.User, error) {
	var row User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch {
		case u.ID != "":
			err = tx.Where("id = ?", u.ID).First(&row).Error
		case u.Email != "":
			err = tx.Where("email = ?", normalizeEmail(u.Email)).First(&row).Error
		default:
			return &StoreError{Message: "user needs an id or an email"}
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = User{ID: u.ID}
			if row.ID == "" {
				row.ID = model.NewID()
			}
		} else if err != nil {
			return err
		}

		if u.Name != "" {
			row.Name = u.Name
		}
		if u.Image != "" {
			row.Image = u.Image
		}
		if u.Email != "" {
			email := normalizeEmail(u.Email)
			row.Email = &email
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return model.User{}, fmt.Errorf("error saving user: %w", err)
	}
	return userFromRow(row), nil
}

// MarkEmailVerified records when the user proved ownership of their email.
func (s *Store) MarkEmailVerified(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("email_verified", s.now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	var row User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.User{}, translate(err)
	}
	return userFromRow(row), nil
}

// GetUserByEmail loads a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var row User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&row).Error; err != nil {
		return model.User{}, translate(err)
	}
	return userFromRow(row), nil
}

// DeleteUser removes a user and, through the foreign keys, everything they own.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func userFromRow(row User) model.User {
	u := model.User{ID: row.ID, Name: row.Name, Image: row.Image}
	if row.Email != nil {
		u.Email = *row.Email
	}
	return u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// VERIFICATION TOKENS
// =============================================================================

// CreateVerificationToken stores a one-time token for identifier.
func (s *Store) CreateVerificationToken(ctx context.Context, identifier, token string, expires time.Time) error {
	row := VerificationToken{Identifier: normalizeEmail(identifier), Token: token, Expires: expires.UTC()}
	return s.db.WithContext(ctx).Create(&row).Error
}

// ConsumeVerificationToken deletes the token and reports ErrNotFound when it
// is unknown or expired. A token can be consumed once.
func (s *Store) ConsumeVerificationToken(ctx context.Context, identifier, token string) error {
	db := s.db.WithContext(ctx)

	var row VerificationToken
	err := db.Where("identifier = ? AND token = ?", normalizeEmail(identifier), token).First(&row).Error
	if err != nil {
		return translate(err)
	}

	res := db.Where("identifier = ? AND token = ?", row.Identifier, row.Token).Delete(&VerificationToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// consumed concurrently
		return ErrNotFound
	}
	if !row.Expires.After(s.now()) {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession stores a session for userID.
func (s *Store) CreateSession(ctx context.Context, token, userID string, expires time.Time) error {
	row := Session{SessionToken: token, UserID: userID, Expires: expires.UTC()}
	return s.db.WithContext(ctx).Create(&row).Error
}

// GetSession returns the user behind an unexpired session.
func (s *Store) GetSession(ctx context.Context, token string) (model.User, error) {
	var sess Session
	if err := s.db.WithContext(ctx).Where("session_token = ?", token).First(&sess).Error; err != nil {
		return model.User{}, translate(err)
	}
	if !sess.Expires.After(s.now()) {
		return model.User{}, ErrNotFound
	}
	return s.GetUser(ctx, sess.UserID)
}

// DeleteSession revokes a session.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("session_token = ?", token).Delete(&Session{}).Error
}
