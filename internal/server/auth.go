// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/chatdeck/internal/auth"
)

func (s *Server) addAuthRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/email", RestHandler(s.log, s.RequestLink))
		r.Post("/verify", RestHandler(s.log, s.Verify))
		r.Get("/session", RestHandler(s.log, s.CurrentSession))
		r.Delete("/session", RestHandler(s.log, s.SignOut))
	})
}

// RequestLinkRequest is the body of POST /api/auth/email.
type RequestLinkRequest struct {
	Email string `json:"email"`
}

// RequestLinkResponse acknowledges a sign-in request.
type RequestLinkResponse struct {
	Status string `json:"status"`
}

// RequestLink stores a magic-link token. The token never appears in the
// response; it is delivered out of band.
func (s *Server) RequestLink(r *http.Request) (any, error) {
	req, err := ParseRequest[RequestLinkRequest](r)
	if err != nil {
		return nil, err
	}
	if _, err := s.signIn.RequestLink(r.Context(), req.Email); err != nil {
		return nil, authError(err)
	}
	return accepted(RequestLinkResponse{Status: "sent"}), nil
}

// VerifyRequest is the body of POST /api/auth/verify.
type VerifyRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Verify exchanges a magic-link token for a session token.
func (s *Server) Verify(r *http.Request) (any, error) {
	req, err := ParseRequest[VerifyRequest](r)
	if err != nil {
		return nil, err
	}
	sess, err := s.signIn.Verify(r.Context(), req.Email, req.Token)
	if err != nil {
		return nil, authError(err)
	}
	return sess, nil
}

// CurrentSession returns the calling user.
func (s *Server) CurrentSession(r *http.Request) (any, error) {
	user, ok := auth.UserFrom(r.Context())
	if !ok || bearerToken(r) == "" {
		return nil, CodedErrorf(http.StatusUnauthorized, "not signed in")
	}
	return user, nil
}

// SignOut revokes the caller's session token.
func (s *Server) SignOut(r *http.Request) (any, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, CodedErrorf(http.StatusUnauthorized, "not signed in")
	}
	if err := s.signIn.SignOut(r.Context(), token); err != nil {
		return nil, authError(err)
	}
	return noContent(), nil
}

func authError(err error) error {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return CodedError(http.StatusBadRequest, err)
	case errors.Is(err, auth.ErrInvalidLink), errors.Is(err, auth.ErrInvalidToken):
		return CodedError(http.StatusUnauthorized, err)
	default:
		return err
	}
}
