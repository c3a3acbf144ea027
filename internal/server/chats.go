// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/chatdeck/internal/auth"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/storage"
)

// maxAppendMessages bounds one append request.
const maxAppendMessages = 100

func (s *Server) addChatRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Use(RequireUser(s.log))
		r.Get("/", RestHandler(s.log, s.ListChats))
		r.Post("/", RestHandler(s.log, s.CreateChat))
		r.Route("/{chat_id}", func(r chi.Router) {
			r.Get("/", RestHandler(s.log, s.GetChat))
			r.Patch("/", RestHandler(s.log, s.RenameChat))
			r.Delete("/", RestHandler(s.log, s.DeleteChat))
			r.Post("/messages", RestHandler(s.log, s.AppendMessages))
		})
	})
}

// ListChatsParams are the query parameters of GET /api/chats.
type ListChatsParams struct {
	UserID string `schema:"userId"`
}

// ListChats returns the caller's chats, most recently updated first. Admins
// may pass another user's id.
func (s *Server) ListChats(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[ListChatsParams](r)
	if err != nil {
		return nil, err
	}

	caller := auth.UserID(r.Context())
	target := caller
	if params.UserID != "" && params.UserID != caller {
		if !s.admins.IsAdmin(caller) {
			return nil, CodedErrorf(http.StatusForbidden, "cannot list chats of another user")
		}
		target = params.UserID
	}

	chats, err := s.store.ListChats(r.Context(), target)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []model.ChatSummary{}
	}
	return chats, nil
}

// CreateChatRequest is the body of POST /api/chats.
type CreateChatRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// CreateChat creates a chat owned by the caller.
func (s *Server) CreateChat(r *http.Request) (any, error) {
	req, err := ParseRequest[CreateChatRequest](r)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = model.NewID()
	}
	chat, err := s.store.CreateChat(r.Context(), auth.UserID(r.Context()), id, strings.TrimSpace(req.Title))
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info("chat created", "chat_id", chat.ID, "user_id", chat.UserID)
	return created(chat), nil
}

// GetChat returns a chat with its messages in chronological order.
func (s *Server) GetChat(r *http.Request) (any, error) {
	chatID, err := URLParam(r, "chat_id")
	if err != nil {
		return nil, err
	}
	chat, err := s.store.GetChat(r.Context(), auth.UserID(r.Context()), chatID)
	if err != nil {
		return nil, storeError(err)
	}
	return chat, nil
}

// RenameChatRequest is the body of PATCH /api/chats/{id}.
type RenameChatRequest struct {
	Title string `json:"title"`
}

// RenameChat changes a chat's title.
func (s *Server) RenameChat(r *http.Request) (any, error) {
	chatID, err := URLParam(r, "chat_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[RenameChatRequest](r)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "title must not be empty")
	}
	chat, err := s.store.RenameChat(r.Context(), auth.UserID(r.Context()), chatID, title)
	if err != nil {
		return nil, storeError(err)
	}
	return chat, nil
}

// DeleteChat removes a chat and its messages.
func (s *Server) DeleteChat(r *http.Request) (any, error) {
	chatID, err := URLParam(r, "chat_id")
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteChat(r.Context(), auth.UserID(r.Context()), chatID); err != nil {
		return nil, storeError(err)
	}
	s.log.Info("chat deleted", "chat_id", chatID, "user_id", auth.UserID(r.Context()))
	return noContent(), nil
}

// AppendMessagesRequest is the body of POST /api/chats/{id}/messages.
type AppendMessagesRequest struct {
	Messages []model.Message `json:"messages"`
}

// AppendMessages stores messages in a chat, creating the chat when needed.
func (s *Server) AppendMessages(r *http.Request) (any, error) {
	chatID, err := URLParam(r, "chat_id")
	if err != nil {
		return nil, err
	}
	req, err := ParseRequest[AppendMessagesRequest](r)
	if err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "messages must not be empty")
	}
	if len(req.Messages) > maxAppendMessages {
		return nil, CodedErrorf(http.StatusBadRequest, "at most %d messages per request", maxAppendMessages)
	}
	for i, msg := range req.Messages {
		if msg.ID == "" {
			return nil, CodedErrorf(http.StatusBadRequest, "message %d has no id", i)
		}
		if err := msg.Validate(); err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "message %d: %v", i, err)
		}
	}

	chat, err := s.store.AppendMessages(r.Context(), auth.UserID(r.Context()), chatID, req.Messages)
	if err != nil {
		return nil, storeError(err)
	}
	return chat, nil
}

// storeError maps storage errors to HTTP statuses.
func storeError(err error) error {
	var serr *storage.StoreError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return CodedErrorf(http.StatusNotFound, "chat not found")
	case errors.As(err, &serr):
		return CodedError(http.StatusBadRequest, err)
	default:
		return err
	}
}
