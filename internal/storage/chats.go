// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jeranaias/chatdeck/internal/model"
)

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// CreateChat creates a chat for userID. An empty id gets a generated one and
// an empty title gets the default title. The user row is created if needed.
func (s *Store) CreateChat(ctx context.Context, userID, id, title string) (model.ChatSummary, error) {
	if id == "" {
		id = model.NewID()
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultChatTitle
	}

	now := s.now()
	row := Chat{ID: id, UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return model.ChatSummary{}, fmt.Errorf("error creating chat: %w", err)
	}

	s.log.Debug("chat created", "chat_id", id, "user_id", userID)
	return chatSummary(row), nil
}

// GetChat loads a chat owned by userID with its messages in creation order.
func (s *Store) GetChat(ctx context.Context, userID, chatID string) (model.Chat, error) {
	var row Chat
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&row).Error
	if err != nil {
		return model.Chat{}, translate(err)
	}
	return chatFromRow(row)
}

// ListChats returns the user's chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context, userID string) ([]model.ChatSummary, error) {
	var rows []Chat
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing chats: %w", err)
	}

	out := make([]model.ChatSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, chatSummary(row))
	}
	return out, nil
}

// RenameChat changes the title of a chat owned by userID.
func (s *Store) RenameChat(ctx context.Context, userID, chatID, title string) (model.ChatSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.ChatSummary{}, &StoreError{Message: "title must not be empty"}
	}

	var row Chat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", chatID, userID).First(&row).Error; err != nil {
			return err
		}
		row.Title = title
		row.UpdatedAt = s.now()
		return tx.Model(&row).Updates(map[string]any{"title": row.Title, "updated_at": row.UpdatedAt}).Error
	})
	if err != nil {
		return model.ChatSummary{}, translate(err)
	}
	return chatSummary(row), nil
}

// DeleteChat deletes a chat owned by userID together with its messages.
func (s *Store) DeleteChat(ctx context.Context, userID, chatID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", chatID, userID).Delete(&Chat{})
		if res.Error != nil {
			return fmt.Errorf("error deleting chat: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// The foreign key cascades on both drivers; this also covers
		// databases opened without foreign key enforcement.
		if err := tx.Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("error deleting chat messages: %w", err)
		}
		s.log.Debug("chat deleted", "chat_id", chatID, "user_id", userID)
		return nil
	})
}

// AppendMessages stores messages in a chat owned by userID and bumps the
// chat's updated_at. The chat is created on first use, titled after the first
// user message. Messages that already exist (same id) have their parts
// replaced. Creation times are forced to be strictly increasing within a chat
// so display order equals insertion order.
func (s *Store) AppendMessages(ctx context.Context, userID, chatID string, msgs []model.Message) (model.ChatSummary, error) {
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			return model.ChatSummary{}, err
		}
	}

	var chat Chat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", chatID).First(&chat).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := ensureUser(tx, userID); err != nil {
				return err
			}
			now := s.now()
			chat = Chat{ID: chatID, UserID: userID, Title: titleFor(msgs), CreatedAt: now, UpdatedAt: now}
			if err := tx.Create(&chat).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case chat.UserID != userID:
			return ErrNotFound
		}

		var last Message
		lastErr := tx.Where("chat_id = ?", chatID).Order("created_at DESC").Limit(1).Find(&last).Error
		if lastErr != nil {
			return lastErr
		}
		lastAt := last.CreatedAt

		rows := make([]Message, 0, len(msgs))
		for _, m := range msgs {
			parts, err := json.Marshal(m.Parts)
			if err != nil {
				return err
			}
			id := m.ID
			if id == "" {
				id = model.NewID()
			}
			createdAt := m.CreatedAt.UTC()
			if createdAt.IsZero() {
				createdAt = s.now()
			}
			if !lastAt.IsZero() && !createdAt.After(lastAt) {
				createdAt = lastAt.Add(time.Microsecond)
			}
			lastAt = createdAt
			rows = append(rows, Message{
				ID:        id,
				ChatID:    chatID,
				Role:      string(m.Role),
				Parts:     datatypes.JSON(parts),
				CreatedAt: createdAt,
			})
		}

		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"parts"}),
			}).Create(&rows).Error
			if err != nil {
				return err
			}
		}

		updates := map[string]any{"updated_at": s.now()}
		if chat.Title == model.DefaultChatTitle {
			if t := titleFor(msgs); t != model.DefaultChatTitle {
				updates["title"] = t
				chat.Title = t
			}
		}
		chat.UpdatedAt = updates["updated_at"].(time.Time)
		return tx.Model(&chat).Updates(updates).Error
	})
	if err != nil {
		return model.ChatSummary{}, translate(err)
	}
	return chatSummary(chat), nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func titleFor(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			return model.TitleFrom(m.Text())
		}
	}
	return model.DefaultChatTitle
}

func chatSummary(row Chat) model.ChatSummary {
	return model.ChatSummary{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func chatFromRow(row Chat) (model.Chat, error) {
	chat := model.Chat{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
		Messages:  make([]model.Message, 0, len(row.Messages)),
	}
	for _, m := range row.Messages {
		var parts model.Parts
		if err := json.Unmarshal(m.Parts, &parts); err != nil {
			return model.Chat{}, fmt.Errorf("message %s: %w", m.ID, err)
		}
		chat.Messages = append(chat.Messages, model.Message{
			ID:        m.ID,
			ChatID:    m.ChatID,
			Role:      model.Role(m.Role),
			Parts:     parts,
			CreatedAt: m.CreatedAt.UTC(),
		})
	}
	return chat, nil
}
