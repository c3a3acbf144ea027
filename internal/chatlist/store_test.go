// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdeck/internal/model"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu        sync.Mutex
	chats     []model.ChatSummary
	listErr   error
	createErr error
	renameErr error
	deleteErr error
	listCalls int
	deleted   []string
	onDelete  func()
	now       time.Time

	// listGate holds ListChats after it has read the list
	listGate    chan struct{}
	listStarted chan struct{}
}

func (f *fakeBackend) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	f.mu.Lock()
	f.listCalls++
	err := f.listErr
	out := append([]model.ChatSummary(nil), f.chats...)
	gate, started := f.listGate, f.listStarted
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// holdList makes the next ListChats block until the returned func runs.
func (f *fakeBackend) holdList() (started <-chan struct{}, release func()) {
	gate := make(chan struct{})
	st := make(chan struct{}, 1)
	f.mu.Lock()
	f.listGate, f.listStarted = gate, st
	f.mu.Unlock()
	return st, func() {
		f.mu.Lock()
		f.listGate, f.listStarted = nil, nil
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeBackend) CreateChat(ctx context.Context, id, title string) (model.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.ChatSummary{}, f.createErr
	}
	if title == "" {
		title = model.DefaultChatTitle
	}
	c := model.ChatSummary{ID: id, Title: title, CreatedAt: f.now, UpdatedAt: f.now}
	f.chats = append(f.chats, c)
	return c, nil
}

func (f *fakeBackend) RenameChat(ctx context.Context, chatID, title string) (model.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return model.ChatSummary{}, f.renameErr
	}
	for i := range f.chats {
		if f.chats[i].ID == chatID {
			f.chats[i].Title = title
			return f.chats[i], nil
		}
	}
	return model.ChatSummary{}, errors.New("not found")
}

func (f *fakeBackend) DeleteChat(ctx context.Context, chatID string) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, chatID)
	return f.deleteErr
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func summary(id string, ageMinutes int) model.ChatSummary {
	at := base.Add(-time.Duration(ageMinutes) * time.Minute)
	return model.ChatSummary{ID: id, Title: "Chat " + id, CreatedAt: at, UpdatedAt: at}
}

func ids(chats []model.ChatSummary) []string {
	out := make([]string, len(chats))
	for i, c := range chats {
		out[i] = c.ID
	}
	return out
}

func newStore(t *testing.T, chats ...model.ChatSummary) (*Store, *fakeBackend, *Router) {
	t.Helper()
	fb := &fakeBackend{chats: chats, now: base.Add(time.Minute)}
	router := NewRouter()
	s := New(fb, router, "u1", Options{})
	return s, fb, router
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_SortsMostRecentFirst(t *testing.T) {
	s, _, _ := newStore(t, summary("old", 30), summary("new", 1), summary("mid", 10))

	var seen []bool
	s.OnChange(func(st State) { seen = append(seen, st.Loading) })

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"new", "mid", "old"}, ids(s.Chats()))
	assert.False(t, s.Loading())
	assert.NoError(t, s.Err())
	assert.Equal(t, []bool{true, false}, seen)
}

func TestLoad_FailureGivesEmptyListAndError(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1))
	fb.listErr = errors.New("connection refused")

	err := s.Load(context.Background())
	require.Error(t, err)
	st := s.State()
	assert.Empty(t, st.Chats)
	assert.NotNil(t, st.Chats)
	assert.Equal(t, fb.listErr, st.Err)
	assert.False(t, st.Loading)

	s.DismissError()
	assert.NoError(t, s.Err())
}

func TestLoad_ReusesFreshListUntilStale(t *testing.T) {
	now := base
	fb := &fakeBackend{chats: []model.ChatSummary{summary("a", 1)}}
	s := New(fb, NewRouter(), "u1", Options{StaleAfter: 5 * time.Minute, Clock: func() time.Time { return now }})

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, fb.calls())

	now = now.Add(5 * time.Minute)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 2, fb.calls())
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_InsertsAtTopAndNavigates(t *testing.T) {
	s, _, router := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))

	var routes []string
	router.OnNavigate(func(r string) { routes = append(routes, r) })

	chat, err := s.Create(context.Background(), "  Trip plans ")
	require.NoError(t, err)
	assert.Equal(t, "Trip plans", chat.Title)
	assert.Equal(t, []string{chat.ID, "a", "b"}, ids(s.Chats()))
	assert.Equal(t, []string{ChatRoute(chat.ID)}, routes)
	assert.Equal(t, ChatRoute(chat.ID), router.Current())
}

func TestCreate_FailureKeepsListAndRoute(t *testing.T) {
	s, fb, router := newStore(t, summary("a", 1))
	require.NoError(t, s.Load(context.Background()))
	fb.createErr = errors.New("boom")

	_, err := s.Create(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, ids(s.Chats()))
	assert.Equal(t, HomeRoute, router.Current())
	assert.Error(t, s.Err())
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_OpenChatNavigatesHomeWithoutRefetch(t *testing.T) {
	s, fb, router := newStore(t, summary("a", 1), summary("b", 2), summary("c", 3))
	require.NoError(t, s.Load(context.Background()))
	router.Navigate(ChatRoute("b"))

	var during State
	fb.onDelete = func() { during = s.State() }

	require.NoError(t, s.Delete(context.Background(), "b"))

	// removed before the request, with no loading state
	assert.Equal(t, []string{"a", "c"}, ids(during.Chats))
	assert.False(t, during.Loading)
	assert.Equal(t, HomeRoute, router.Current())

	assert.Equal(t, []string{"a", "c"}, ids(s.Chats()))
	assert.Equal(t, []string{"b"}, fb.deleted)
	assert.Equal(t, 1, fb.calls(), "no refetch after delete")
}

func TestDelete_OtherChatKeepsRoute(t *testing.T) {
	s, _, router := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))
	router.Navigate(ChatRoute("a"))

	require.NoError(t, s.Delete(context.Background(), "b"))
	assert.Equal(t, ChatRoute("a"), router.Current())
	assert.Equal(t, []string{"a"}, ids(s.Chats()))
}

func TestDelete_FailureRestoresOriginalPosition(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1), summary("b", 2), summary("c", 3))
	require.NoError(t, s.Load(context.Background()))
	fb.deleteErr = errors.New("server unavailable")

	err := s.Delete(context.Background(), "b")
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Chats()))
	assert.Equal(t, fb.deleteErr, s.Err())
}

func TestDelete_ReflectedInCachedList(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Delete(context.Background(), "a"))

	// a fresh Load is served from the cache, already without "a"
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"b"}, ids(s.Chats()))
	assert.Equal(t, 1, fb.calls())
}

func TestDelete_DuringFetchStaysDeleted(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))

	started, release := fb.holdList()
	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-started

	// the in-flight fetch already read a list that still has "a"
	require.NoError(t, s.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"b"}, ids(s.Chats()))

	release()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"b"}, ids(s.Chats()))
	assert.False(t, s.Loading())

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"b"}, ids(s.Chats()), "cached list has no deleted chat")
}

func TestRefresh_ServerLagDoesNotRestoreDeletedChat(t *testing.T) {
	// the fake server keeps listing deleted chats
	s, _, _ := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Delete(context.Background(), "a"))

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, []string{"b"}, ids(s.Chats()))
}

func TestCreate_DuringFetchIsKept(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1))
	require.NoError(t, s.Load(context.Background()))

	started, release := fb.holdList()
	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-started

	chat, err := s.Create(context.Background(), "Late")
	require.NoError(t, err)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, []string{chat.ID, "a"}, ids(s.Chats()))
}

func TestDelete_NotifiesOnlyAfterServerConfirms(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))

	var forgotten []string
	s.OnDeleted(func(id string) { forgotten = append(forgotten, id) })

	require.NoError(t, s.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, forgotten)

	fb.deleteErr = errors.New("server unavailable")
	require.Error(t, s.Delete(context.Background(), "b"))
	assert.Equal(t, []string{"a"}, forgotten)

	// a failed delete is not remembered as deleted
	fb.deleteErr = nil
	require.NoError(t, s.Refresh(context.Background()))
	assert.Contains(t, ids(s.Chats()), "b")
}

// =============================================================================
// RENAME AND TOUCH
// =============================================================================

func TestRename(t *testing.T) {
	s, fb, _ := newStore(t, summary("a", 1))
	require.NoError(t, s.Load(context.Background()))

	assert.ErrorIs(t, s.Rename(context.Background(), "a", "   "), ErrEmptyTitle)

	require.NoError(t, s.Rename(context.Background(), "a", "Renamed"))
	assert.Equal(t, "Renamed", s.Chats()[0].Title)

	fb.renameErr = errors.New("rejected")
	require.Error(t, s.Rename(context.Background(), "a", "Again"))
	assert.Equal(t, "Renamed", s.Chats()[0].Title)
	assert.Error(t, s.Err())
}

func TestTouch(t *testing.T) {
	s, _, _ := newStore(t, summary("a", 1), summary("b", 2))
	require.NoError(t, s.Load(context.Background()))

	bumped := summary("b", 0)
	bumped.Title = ""
	s.Touch(bumped)
	assert.Equal(t, []string{"b", "a"}, ids(s.Chats()))
	assert.Equal(t, "Chat b", s.Chats()[0].Title, "empty title keeps the old one")

	fresh := model.ChatSummary{ID: "n", Title: "New", UpdatedAt: base.Add(time.Hour)}
	s.Touch(fresh)
	assert.Equal(t, []string{"n", "b", "a"}, ids(s.Chats()))
}

func TestSetUser(t *testing.T) {
	s, _, _ := newStore(t, summary("a", 1))
	require.NoError(t, s.Load(context.Background()))

	s.SetUser("u2")
	st := s.State()
	assert.Equal(t, "u2", st.UserID)
	assert.Empty(t, st.Chats)
}

// =============================================================================
// LABELS AND ROUTES
// =============================================================================

func TestLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Short", "Short"},
		{"Exactly eighteen!!", "Exactly eighteen!!"},
		{"A title that is definitely too long", "A title that is de..."},
		{"", "New Chat"},
		{"日本語のタイトルはとても長いですね本当に長い", "日本語のタイトルはとても長いですね本..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.in), tt.in)
	}
}

func TestRoutes(t *testing.T) {
	id, ok := ChatIDFromRoute(ChatRoute("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = ChatIDFromRoute(HomeRoute)
	assert.False(t, ok)
	_, ok = ChatIDFromRoute("/chat/")
	assert.False(t, ok)

	r := NewRouter()
	r.Navigate("")
	assert.Equal(t, HomeRoute, r.Current())
}
