// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatlist

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/querycache"
	"github.com/jeranaias/chatdeck/internal/util"
)

// LabelWidth is how many characters of a title the sidebar shows.
const LabelWidth = 18

// ErrEmptyTitle is returned by Rename for a blank title.
var ErrEmptyTitle = errors.New("chat title is required")

// Backend is the persistence surface the store needs. The backend is
// already scoped to the store's user.
type Backend interface {
	ListChats(ctx context.Context) ([]model.ChatSummary, error)
	CreateChat(ctx context.Context, id, title string) (model.ChatSummary, error)
	RenameChat(ctx context.Context, chatID, title string) (model.ChatSummary, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// State is a snapshot of the store.
type State struct {
	UserID  string
	Chats   []model.ChatSummary
	Loading bool
	Err     error
}

// Options configures a Store.
type Options struct {
	// StaleAfter is how long a fetched list is reused by Load
	StaleAfter time.Duration
	Clock      func() time.Time
	Log        *logger.Logger
}

// =============================================================================
// STORE
// =============================================================================

// Store holds one user's chat summaries, most recent first. Safe for
// concurrent use; listeners run outside the lock.
type Store struct {
	backend Backend
	nav     Navigator
	cache   *querycache.Cache[string, []model.ChatSummary]
	log     *logger.Logger

	mu        sync.Mutex
	userID    string
	chats     []model.ChatSummary
	loading   bool
	err       error
	gen       uint64
	listeners []func(State)

	// edits counts local mutations; a fetch that started before an edit
	// must not overwrite it
	edits uint64
	// deleted holds chats removed locally, so a list fetched before the
	// server delete landed cannot bring them back
	deleted   map[string]struct{}
	onDeleted []func(chatID string)
}

// New creates a store for userID.
func New(backend Backend, nav Navigator, userID string, opts Options) *Store {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	var cacheOpts []querycache.Option
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, querycache.WithClock(opts.Clock))
	}
	return &Store{
		backend: backend,
		nav:     nav,
		cache:   querycache.New[string, []model.ChatSummary](opts.StaleAfter, cacheOpts...),
		log:     log.With("component", "chatlist"),
		userID:  userID,
		chats:   []model.ChatSummary{},
		deleted: map[string]struct{}{},
	}
}

// OnChange registers a listener called with a snapshot after every change.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// OnDeleted registers fn to run after the server confirms a delete.
func (s *Store) OnDeleted(fn func(chatID string)) {
	s.mu.Lock()
	s.onDeleted = append(s.onDeleted, fn)
	s.mu.Unlock()
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Chats returns the current list.
func (s *Store) Chats() []model.ChatSummary {
	return s.State().Chats
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	return s.State().Loading
}

// Err returns the last fetch or mutation error.
func (s *Store) Err() error {
	return s.State().Err
}

func (s *Store) snapshotLocked() State {
	return State{
		UserID:  s.userID,
		Chats:   append(make([]model.ChatSummary, 0, len(s.chats)), s.chats...),
		Loading: s.loading,
		Err:     s.err,
	}
}

// unlockAndNotify releases the lock and calls listeners with the state as
// it was at release.
func (s *Store) unlockAndNotify() {
	state := s.snapshotLocked()
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

// SetUser switches the store to another user and clears the list. The
// caller scopes the backend to the same user.
func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.chats = []model.ChatSummary{}
	s.err = nil
	s.loading = false
	s.gen++
	s.deleted = map[string]struct{}{}
	s.unlockAndNotify()
}

// =============================================================================
// FETCH
// =============================================================================

// Load shows the user's chats, fetching them unless a fresh list is cached.
// A failed fetch leaves the list empty and sets Err.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if e, ok := s.cache.Get(s.userID); ok && !s.cache.IsStale(e) {
		s.chats = sorted(s.liveLocked(e.Data))
		s.err = nil
		s.unlockAndNotify()
		return nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh always fetches.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen, edits, userID := s.gen, s.edits, s.userID
	s.loading = true
	s.unlockAndNotify()

	chats, err := s.cache.Fetch(ctx, userID, s.backend.ListChats)

	s.mu.Lock()
	if gen != s.gen {
		// superseded by another fetch or a user switch
		s.mu.Unlock()
		return err
	}
	s.loading = false
	switch {
	case err != nil && edits != s.edits:
		s.log.Warn("chat list fetch failed", "user_id", userID, "error", err)
		s.err = err
	case err != nil:
		s.log.Warn("chat list fetch failed", "user_id", userID, "error", err)
		s.chats = []model.ChatSummary{}
		s.err = err
	case edits != s.edits:
		// the list changed locally while the fetch was in flight
		s.log.Debug("discarding chat list fetched before a local change", "user_id", userID)
		s.err = nil
		s.syncCacheLocked()
	default:
		live := s.liveLocked(chats)
		s.chats = sorted(live)
		s.err = nil
		if len(live) != len(chats) {
			s.syncCacheLocked()
		}
	}
	s.unlockAndNotify()
	return err
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create persists a new chat, puts it at the top of the list and navigates
// to it.
func (s *Store) Create(ctx context.Context, title string) (model.ChatSummary, error) {
	chat, err := s.backend.CreateChat(ctx, model.NewID(), strings.TrimSpace(title))
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.unlockAndNotify()
		return model.ChatSummary{}, err
	}

	s.mu.Lock()
	s.edits++
	s.chats = append([]model.ChatSummary{chat}, without(s.chats, chat.ID)...)
	s.err = nil
	s.syncCacheLocked()
	s.unlockAndNotify()

	s.log.Debug("chat created", "chat_id", chat.ID)
	s.nav.Navigate(ChatRoute(chat.ID))
	return chat, nil
}

// Delete removes a chat locally, navigates home when it is the open chat,
// then deletes it on the server. On failure the chat is put back where it
// was and Err is set. A successful delete does not refetch.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	s.mu.Lock()
	s.edits++
	s.deleted[chatID] = struct{}{}
	idx := indexOf(s.chats, chatID)
	var removed model.ChatSummary
	if idx >= 0 {
		removed = s.chats[idx]
		s.chats = without(s.chats, chatID)
		s.syncCacheLocked()
	}
	s.err = nil
	s.unlockAndNotify()

	if s.nav.Current() == ChatRoute(chatID) {
		s.nav.Navigate(HomeRoute)
	}

	if err := s.backend.DeleteChat(ctx, chatID); err != nil {
		s.log.Warn("chat delete failed, restoring", "chat_id", chatID, "error", err)
		s.mu.Lock()
		s.edits++
		delete(s.deleted, chatID)
		if idx >= 0 && indexOf(s.chats, chatID) < 0 {
			s.chats = insertAt(s.chats, idx, removed)
			s.syncCacheLocked()
		}
		s.err = err
		s.unlockAndNotify()
		return err
	}
	s.log.Debug("chat deleted", "chat_id", chatID)
	s.mu.Lock()
	hooks := append([]func(string){}, s.onDeleted...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(chatID)
	}
	return nil
}

// Rename changes a chat's title locally, then on the server. On failure the
// old title is restored and Err is set.
func (s *Store) Rename(ctx context.Context, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	s.edits++
	idx := indexOf(s.chats, chatID)
	var old string
	if idx >= 0 {
		old = s.chats[idx].Title
		s.chats[idx].Title = title
		s.syncCacheLocked()
	}
	s.err = nil
	s.unlockAndNotify()

	updated, err := s.backend.RenameChat(ctx, chatID, title)

	s.mu.Lock()
	s.edits++
	i := indexOf(s.chats, chatID)
	if err != nil {
		if idx >= 0 && i >= 0 && s.chats[i].Title == title {
			s.chats[i].Title = old
			s.syncCacheLocked()
		}
		s.err = err
		s.unlockAndNotify()
		return err
	}
	if i >= 0 {
		s.chats[i] = updated
		s.chats = sorted(s.chats)
		s.syncCacheLocked()
	}
	s.unlockAndNotify()
	return nil
}

// Touch records activity on a chat, adding it when it is not listed yet,
// and keeps the list ordered.
func (s *Store) Touch(chat model.ChatSummary) {
	s.mu.Lock()
	if _, gone := s.deleted[chat.ID]; gone {
		s.mu.Unlock()
		return
	}
	s.edits++
	if i := indexOf(s.chats, chat.ID); i >= 0 {
		if chat.Title == "" {
			chat.Title = s.chats[i].Title
		}
		s.chats[i] = chat
	} else {
		s.chats = append(s.chats, chat)
	}
	s.chats = sorted(s.chats)
	s.syncCacheLocked()
	s.unlockAndNotify()
}

// DismissError clears Err.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.err = nil
	s.unlockAndNotify()
}

// liveLocked drops chats deleted locally.
func (s *Store) liveLocked(chats []model.ChatSummary) []model.ChatSummary {
	if len(s.deleted) == 0 {
		return chats
	}
	out := make([]model.ChatSummary, 0, len(chats))
	for _, c := range chats {
		if _, gone := s.deleted[c.ID]; !gone {
			out = append(out, c)
		}
	}
	return out
}

// syncCacheLocked mirrors local mutations into the cached list without
// changing when it was fetched.
func (s *Store) syncCacheLocked() {
	chats := append([]model.ChatSummary(nil), s.chats...)
	s.cache.Update(s.userID, func([]model.ChatSummary) []model.ChatSummary { return chats })
}

// =============================================================================
// HELPERS
// =============================================================================

// Label is the sidebar text for a title.
func Label(title string) string {
	if strings.TrimSpace(title) == "" {
		title = model.DefaultChatTitle
	}
	return util.TruncateTitle(title, LabelWidth)
}

func sorted(chats []model.ChatSummary) []model.ChatSummary {
	out := append([]model.ChatSummary(nil), chats...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func indexOf(chats []model.ChatSummary, id string) int {
	for i, c := range chats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func without(chats []model.ChatSummary, id string) []model.ChatSummary {
	out := make([]model.ChatSummary, 0, len(chats))
	for _, c := range chats {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func insertAt(chats []model.ChatSummary, i int, c model.ChatSummary) []model.ChatSummary {
	if i > len(chats) {
		i = len(chats)
	}
	out := make([]model.ChatSummary, 0, len(chats)+1)
	out = append(out, chats[:i]...)
	out = append(out, c)
	return append(out, chats[i:]...)
}
