// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
)

// UserIDHeader identifies the caller when no session token is set.
const UserIDHeader = "x-user-id"

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the persistence API. Safe for concurrent use.
type Client struct {
	http *resty.Client
	log  *logger.Logger

	mu     sync.RWMutex
	userID string
	token  string
}

// New creates a client from config.
func New(cfg config.ClientConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: hc, log: log.With("component", "api"), userID: cfg.UserID, token: cfg.Token}
}

// SetUserID changes the x-user-id sent with each request.
func (c *Client) SetUserID(id string) {
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

// UserID returns the configured user id.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetToken changes the bearer session token. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) request(ctx context.Context) *resty.Request {
	c.mu.RLock()
	userID, token := c.userID, c.token
	c.mu.RUnlock()

	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if userID != "" {
		req.SetHeader(UserIDHeader, userID)
	}
	return req
}

// do executes req and classifies the outcome.
func (c *Client) do(op, method, path string, req *resty.Request) error {
	start := time.Now()
	res, err := req.Execute(method, path)
	if err != nil {
		c.log.Warn("request failed", "op", op, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	c.log.Debug("request", "op", op, "status", res.StatusCode(), "duration", time.Since(start).String())
	if !res.IsError() {
		return nil
	}

	msg := http.StatusText(res.StatusCode())
	if body, ok := res.Error().(*errorBody); ok && body.Error != "" {
		msg = body.Error
	}
	switch {
	case res.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case res.StatusCode() >= 500:
		return &NetworkError{Op: op, Status: res.StatusCode(), Err: errors.New(msg)}
	default:
		return &ValidationError{Op: op, Status: res.StatusCode(), Message: msg}
	}
}

// =============================================================================
// CHATS
// =============================================================================

// GetChat loads a chat with its messages.
func (c *Client) GetChat(ctx context.Context, chatID string) (model.Chat, error) {
	var chat model.Chat
	req := c.request(ctx).SetResult(&chat)
	if err := c.do("get chat", resty.MethodGet, "/chats/"+url.PathEscape(chatID), req); err != nil {
		return model.Chat{}, err
	}
	if chat.Messages == nil {
		chat.Messages = []model.Message{}
	}
	return chat, nil
}

// ListChats returns the configured user's chats, most recent first.
func (c *Client) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	var chats []model.ChatSummary
	req := c.request(ctx).SetResult(&chats)
	if id := c.UserID(); id != "" {
		req.SetQueryParam("userId", id)
	}
	if err := c.do("list chats", resty.MethodGet, "/chats", req); err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []model.ChatSummary{}
	}
	return chats, nil
}

// CreateChat creates a chat. Empty id and title are filled in by the server.
func (c *Client) CreateChat(ctx context.Context, id, title string) (model.ChatSummary, error) {
	var chat model.ChatSummary
	body := map[string]string{"id": id, "title": title}
	req := c.request(ctx).SetBody(body).SetResult(&chat)
	if err := c.do("create chat", resty.MethodPost, "/chats", req); err != nil {
		return model.ChatSummary{}, err
	}
	return chat, nil
}

// RenameChat changes a chat's title.
func (c *Client) RenameChat(ctx context.Context, chatID, title string) (model.ChatSummary, error) {
	var chat model.ChatSummary
	req := c.request(ctx).SetBody(map[string]string{"title": title}).SetResult(&chat)
	if err := c.do("rename chat", resty.MethodPatch, "/chats/"+url.PathEscape(chatID), req); err != nil {
		return model.ChatSummary{}, err
	}
	return chat, nil
}

// DeleteChat deletes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do("delete chat", resty.MethodDelete, "/chats/"+url.PathEscape(chatID), c.request(ctx))
}

// AppendMessages stores messages in a chat, creating it when needed.
func (c *Client) AppendMessages(ctx context.Context, chatID string, msgs []model.Message) (model.ChatSummary, error) {
	var chat model.ChatSummary
	body := struct {
		Messages []model.Message `json:"messages"`
	}{msgs}
	req := c.request(ctx).SetBody(body).SetResult(&chat)
	if err := c.do("append messages", resty.MethodPost, "/chats/"+url.PathEscape(chatID)+"/messages", req); err != nil {
		return model.ChatSummary{}, err
	}
	return chat, nil
}

// =============================================================================
// MODELS AND AUTH
// =============================================================================

// ModelList is the server's model registry.
type ModelList struct {
	Default string            `json:"default"`
	Models  []model.ModelInfo `json:"models"`
}

// Models fetches the selectable models.
func (c *Client) Models(ctx context.Context) (ModelList, error) {
	var out ModelList
	if err := c.do("list models", resty.MethodGet, "/models", c.request(ctx).SetResult(&out)); err != nil {
		return ModelList{}, err
	}
	return out, nil
}

// Session is a signed-in user with their session token.
type Session struct {
	User    model.User `json:"user"`
	Token   string     `json:"token"`
	Expires time.Time  `json:"expires"`
}

// RequestLink asks the server to send a sign-in link to email. Callers
// validate the address first.
func (c *Client) RequestLink(ctx context.Context, email string) error {
	req := c.request(ctx).SetBody(map[string]string{"email": email})
	return c.do("request sign-in link", resty.MethodPost, "/auth/email", req)
}

// Verify exchanges a sign-in token for a session.
func (c *Client) Verify(ctx context.Context, email, token string) (Session, error) {
	var out Session
	req := c.request(ctx).SetBody(map[string]string{"email": email, "token": token}).SetResult(&out)
	if err := c.do("verify sign-in link", resty.MethodPost, "/auth/verify", req); err != nil {
		return Session{}, err
	}
	return out, nil
}

// CurrentUser returns the user behind the session token.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var out model.User
	if err := c.do("current session", resty.MethodGet, "/auth/session", c.request(ctx).SetResult(&out)); err != nil {
		return model.User{}, err
	}
	return out, nil
}
