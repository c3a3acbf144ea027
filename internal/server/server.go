// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jeranaias/chatdeck/internal/auth"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
)

// ============================================================================
// Dependencies
// ============================================================================

// ChatStore is the persistence the API serves. *storage.Store satisfies it.
type ChatStore interface {
	CreateChat(ctx context.Context, userID, id, title string) (model.ChatSummary, error)
	GetChat(ctx context.Context, userID, chatID string) (model.Chat, error)
	ListChats(ctx context.Context, userID string) ([]model.ChatSummary, error)
	RenameChat(ctx context.Context, userID, chatID, title string) (model.ChatSummary, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
	AppendMessages(ctx context.Context, userID, chatID string, msgs []model.Message) (model.ChatSummary, error)
}

// SignIn is the magic-link flow. *auth.Service satisfies it.
type SignIn interface {
	Authenticator
	RequestLink(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, token string) (auth.Session, error)
	SignOut(ctx context.Context, bearer string) error
}

// ============================================================================
// Server
// ============================================================================

// Server serves the persistence API.
type Server struct {
	cfg     config.ServerConfig
	store   ChatStore
	signIn  SignIn
	admins  auth.AdminList
	models  *model.Registry
	limiter *RateLimiter
	log     *logger.Logger

	started time.Time
	http    *http.Server
}

// New wires a Server. signIn may be nil, in which case only x-user-id
// identification is available and the /api/auth routes return 404.
func New(cfg config.ServerConfig, store ChatStore, signIn SignIn, admins auth.AdminList, models *model.Registry, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if models == nil {
		models = model.NewRegistry()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		signIn:  signIn,
		admins:  admins,
		models:  models,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		log:     log.With("component", "server"),
		started: time.Now(),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi router with all middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", UserIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(s.log))
	r.Use(RecoveryMiddleware(s.log))
	r.Use(SecurityHeadersMiddleware())
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	var authn Authenticator
	if s.signIn != nil {
		authn = s.signIn
	}
	r.Use(IdentityMiddleware(authn, s.log))
	r.Use(RateLimitMiddleware(s.limiter, s.log))

	r.Get("/health", RestHandler(s.log, s.Health))
	r.Route("/api", func(r chi.Router) {
		r.Get("/models", RestHandler(s.log, s.ListModels))
		s.addChatRoutes(r)
		if s.signIn != nil {
			s.addAuthRoutes(r)
		}
	})
	return r
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving http: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ApplyConfig applies the settings that take effect without a restart.
func (s *Server) ApplyConfig(cfg config.ServerConfig) {
	s.limiter.SetLimit(cfg.RateLimit, cfg.RateBurst)
	s.log.Info("rate limit updated", "per_second", cfg.RateLimit, "burst", cfg.RateBurst)
}

// ============================================================================
// Health and Models
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Health reports liveness.
func (s *Server) Health(r *http.Request) (any, error) {
	return HealthResponse{Status: "ok", Uptime: time.Since(s.started).Round(time.Second).String()}, nil
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Default string            `json:"default"`
	Models  []model.ModelInfo `json:"models"`
}

// ListModels returns the selectable models.
func (s *Server) ListModels(r *http.Request) (any, error) {
	return ModelsResponse{Default: s.models.Default(), Models: s.models.All()}, nil
}
