// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/storage"
)

// ErrInvalidLink is returned when a magic-link token is unknown, used or expired.
var ErrInvalidLink = errors.New("sign-in link is invalid or has expired")

// Store is the persistence the auth service needs. *storage.Store satisfies it.
type Store interface {
	CreateVerificationToken(ctx context.Context, identifier, token string, expires time.Time) error
	ConsumeVerificationToken(ctx context.Context, identifier, token string) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpsertUser(ctx context.Context, u model.User) (model.User, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	CreateSession(ctx context.Context, token, userID string, expires time.Time) error
	GetSession(ctx context.Context, token string) (model.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// Service implements magic-link sign-in.
type Service struct {
	store   Store
	issuer  *Issuer
	linkTTL time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// Session is the result of a successful sign-in.
type Session struct {
	User    model.User `json:"user"`
	Token   string     `json:"token"`
	Expires time.Time  `json:"expires"`
}

// NewService wires a Service.
func NewService(store Store, issuer *Issuer, linkTTL time.Duration, log *logger.Logger, now func() time.Time) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, issuer: issuer, linkTTL: linkTTL, log: log, now: now}
}

// RequestLink validates email and stores a one-time sign-in token for it.
// Delivery is out of scope; the token is returned and logged at debug level.
func (s *Service) RequestLink(ctx context.Context, email string) (string, error) {
	normalized, err := ValidateEmail(email)
	if err != nil {
		return "", err
	}
	token, err := RandomToken()
	if err != nil {
		return "", err
	}
	if err := s.store.CreateVerificationToken(ctx, normalized, token, s.now().Add(s.linkTTL)); err != nil {
		return "", fmt.Errorf("error storing sign-in token: %w", err)
	}
	s.log.Info("sign-in link requested", "email", normalized)
	s.log.Debug("sign-in link token", "link", "/api/auth/verify?email="+normalized+"&token="+token)
	return token, nil
}

// Verify consumes a sign-in token and opens a session for the address owner,
// creating the user on first sign-in.
func (s *Service) Verify(ctx context.Context, email, token string) (Session, error) {
	normalized, err := ValidateEmail(email)
	if err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, &ValidationError{Field: "token", Message: "token is required"}
	}
	if err := s.store.ConsumeVerificationToken(ctx, normalized, token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, ErrInvalidLink
		}
		return Session{}, err
	}

	user, err := s.store.GetUserByEmail(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		user, err = s.store.UpsertUser(ctx, model.User{ID: model.NewID(), Email: normalized})
	}
	if err != nil {
		return Session{}, fmt.Errorf("error loading user: %w", err)
	}
	if err := s.store.MarkEmailVerified(ctx, user.ID); err != nil {
		return Session{}, fmt.Errorf("error verifying email: %w", err)
	}

	signed, sessionID, expires, err := s.issuer.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.CreateSession(ctx, sessionID, user.ID, expires); err != nil {
		return Session{}, fmt.Errorf("error storing session: %w", err)
	}
	s.log.Info("user signed in", "user_id", user.ID)
	return Session{User: user, Token: signed, Expires: expires}, nil
}

// Authenticate resolves a bearer token to its user. Revoked sessions fail
// even when the token signature is still valid.
func (s *Service) Authenticate(ctx context.Context, bearer string) (model.User, error) {
	claims, err := s.issuer.Parse(bearer)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.store.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.User{}, ErrInvalidToken
		}
		return model.User{}, err
	}
	if user.ID != claims.Subject {
		return model.User{}, ErrInvalidToken
	}
	return user, nil
}

// SignOut revokes the session behind bearer.
func (s *Service) SignOut(ctx context.Context, bearer string) error {
	claims, err := s.issuer.Parse(bearer)
	if err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, claims.ID)
}
