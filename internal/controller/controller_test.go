// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/stream"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu        sync.Mutex
	chats     map[string]model.Chat
	getErr    error
	appendErr error
	gets      map[string]int
	appended  map[string][]model.Message
	gates     map[string]chan struct{}
	started   chan string
}

func newFakeBackend(chats ...model.Chat) *fakeBackend {
	f := &fakeBackend{
		chats:    map[string]model.Chat{},
		gets:     map[string]int{},
		appended: map[string][]model.Message{},
		gates:    map[string]chan struct{}{},
		started:  make(chan string, 16),
	}
	for _, c := range chats {
		f.chats[c.ID] = c
	}
	return f
}

func (f *fakeBackend) GetChat(ctx context.Context, chatID string) (model.Chat, error) {
	f.mu.Lock()
	f.gets[chatID]++
	gate := f.gates[chatID]
	f.mu.Unlock()

	f.started <- chatID
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return model.Chat{}, f.getErr
	}
	chat, ok := f.chats[chatID]
	if !ok {
		return model.Chat{}, fmt.Errorf("get chat: %w", api.ErrNotFound)
	}
	chat.Messages = cloneMessages(chat.Messages)
	return chat, nil
}

func (f *fakeBackend) AppendMessages(ctx context.Context, chatID string, msgs []model.Message) (model.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return model.ChatSummary{}, f.appendErr
	}
	f.appended[chatID] = append(f.appended[chatID], msgs...)
	return model.ChatSummary{ID: chatID, Title: model.TitleFrom(msgs[0].Text()), UpdatedAt: time.Now()}, nil
}

func (f *fakeBackend) getCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[id]
}

func (f *fakeBackend) saved(id string) []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Message(nil), f.appended[id]...)
}

func (f *fakeBackend) gate(id string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[id] = ch
	f.mu.Unlock()
	return ch
}

type fakeList struct {
	mu      sync.Mutex
	touched []model.ChatSummary
}

func (l *fakeList) Touch(chat model.ChatSummary) {
	l.mu.Lock()
	l.touched = append(l.touched, chat)
	l.mu.Unlock()
}

// manualTransport forwards whatever the test pushes until the stream is
// cancelled or events is closed.
type manualTransport struct {
	events chan stream.Event
}

func (m *manualTransport) Stream(ctx context.Context, req stream.Request) (<-chan stream.Event, error) {
	out := make(chan stream.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-m.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func chat(id string, texts ...string) model.Chat {
	c := model.Chat{ID: id, UserID: "u1", Title: "Chat " + id, Messages: []model.Message{}}
	for _, t := range texts {
		c.Messages = append(c.Messages, model.NewUserMessage(id, t))
	}
	return c
}

func texts(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text()
	}
	return out
}

// statusLog records distinct consecutive statuses.
type statusLog struct {
	mu   sync.Mutex
	seen []model.Status
}

func (s *statusLog) record(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.seen); n == 0 || s.seen[n-1] != v.Status {
		s.seen = append(s.seen, v.Status)
	}
}

func (s *statusLog) all() []model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Status(nil), s.seen...)
}

func newController(backend Backend, transport stream.Transport, list ChatList) *Controller {
	return New(Options{Backend: backend, Transport: transport, List: list, UserID: "u1"})
}

// =============================================================================
// OPEN
// =============================================================================

func TestOpen_FetchesOnMiss(t *testing.T) {
	fb := newFakeBackend(chat("a", "hello", "again"))
	c := newController(fb, &stream.Scripted{}, nil)

	var loading []bool
	c.OnChange(func(v View) { loading = append(loading, v.Loading) })

	require.NoError(t, c.Open(context.Background(), "a"))
	v := c.View()
	assert.Equal(t, Key{ChatID: "a", UserID: "u1"}, v.Key)
	assert.Equal(t, []string{"hello", "again"}, texts(v.Messages))
	assert.Equal(t, "Chat a", v.Title)
	assert.Equal(t, model.StatusReady, v.Status)
	assert.Nil(t, v.Err)
	assert.Equal(t, []bool{true, false}, loading)
}

func TestOpen_NotFoundIsEmptyConversation(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb, &stream.Scripted{}, nil)

	require.NoError(t, c.Open(context.Background(), "fresh"))
	v := c.View()
	assert.Empty(t, v.Messages)
	assert.NotNil(t, v.Messages)
	assert.Nil(t, v.Err)
	assert.Equal(t, model.StatusReady, v.Status)
}

func TestOpen_NetworkFailureIsErrorState(t *testing.T) {
	fb := newFakeBackend(chat("a", "x"))
	fb.getErr = &api.NetworkError{Op: "get chat", Err: errors.New("connection refused")}
	c := newController(fb, &stream.Scripted{}, nil)

	err := c.Open(context.Background(), "a")
	require.Error(t, err)
	v := c.View()
	require.NotNil(t, v.Err)
	assert.Equal(t, KindNetwork, v.Err.Kind)
	assert.Equal(t, model.StatusError, v.Status)
	assert.False(t, v.Loading)

	c.DismissError()
	v = c.View()
	assert.Nil(t, v.Err)
	assert.Equal(t, model.StatusReady, v.Status)

	// errors are not cached: a retry fetches again
	fb.mu.Lock()
	fb.getErr = nil
	fb.mu.Unlock()
	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, []string{"x"}, texts(c.View().Messages))
	assert.Equal(t, 2, fb.getCount("a"))
}

func TestOpen_FreshCacheSkipsFetch(t *testing.T) {
	fb := newFakeBackend(chat("a", "one"), chat("b", "two"))
	c := newController(fb, &stream.Scripted{}, nil)

	require.NoError(t, c.Open(context.Background(), "a"))
	require.NoError(t, c.Open(context.Background(), "b"))
	require.NoError(t, c.Open(context.Background(), "a"))
	assert.Equal(t, 1, fb.getCount("a"))
	assert.Equal(t, []string{"one"}, texts(c.View().Messages))
}

func TestForget_DropsCachedTranscript(t *testing.T) {
	fb := newFakeBackend(chat("a", "one"), chat("b", "two"))
	c := newController(fb, &stream.Scripted{}, nil)

	require.NoError(t, c.Open(context.Background(), "a"))
	require.NoError(t, c.Open(context.Background(), "b"))
	c.Forget("a")

	fb.mu.Lock()
	delete(fb.chats, "a")
	fb.mu.Unlock()

	require.NoError(t, c.Open(context.Background(), "a"))
	assert.Equal(t, 2, fb.getCount("a"))
	assert.Empty(t, c.View().Messages, "a forgotten chat is not served from the cache")
}

func TestOpen_StaleCacheRendersThenRefreshes(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := newFakeBackend(chat("a", "one"))
	c := New(Options{
		Backend:    fb,
		Transport:  &stream.Scripted{},
		UserID:     "u1",
		StaleAfter: 5 * time.Minute,
		Clock:      func() time.Time { return now },
	})
	require.NoError(t, c.Open(context.Background(), "a"))
	<-fb.started

	fb.mu.Lock()
	fb.chats["a"] = chat("a", "one", "two")
	fb.mu.Unlock()
	gate := fb.gate("a")
	now = now.Add(5 * time.Minute)

	require.NoError(t, c.Open(context.Background(), "a"))
	assert.Equal(t, []string{"one"}, texts(c.View().Messages), "stale data shown without blocking")
	assert.False(t, c.View().Loading)

	<-fb.started
	close(gate)
	c.Wait()
	assert.Equal(t, []string{"one", "two"}, texts(c.View().Messages))
	assert.Equal(t, 2, fb.getCount("a"))
}

func TestOpen_AbandonedFetchDoesNotOverwriteView(t *testing.T) {
	fb := newFakeBackend(chat("a", "from a"), chat("b", "from b"))
	c := newController(fb, &stream.Scripted{}, nil)
	gate := fb.gate("a")

	done := make(chan error, 1)
	go func() { done <- c.Open(context.Background(), "a") }()
	require.Equal(t, "a", <-fb.started)

	require.NoError(t, c.Open(context.Background(), "b"))
	<-fb.started
	close(gate)
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, "b", v.Key.ChatID)
	assert.Equal(t, []string{"from b"}, texts(v.Messages))

	// the abandoned result still populated the cache
	require.NoError(t, c.Open(context.Background(), "a"))
	assert.Equal(t, []string{"from a"}, texts(c.View().Messages))
	assert.Equal(t, 1, fb.getCount("a"))
}

func TestOpen_CacheKeyIncludesUser(t *testing.T) {
	fb := newFakeBackend(chat("a", "one"))
	c := newController(fb, &stream.Scripted{}, nil)

	require.NoError(t, c.Open(context.Background(), "a"))
	c.SetUser("u2")
	assert.Equal(t, Key{}, c.View().Key)
	require.NoError(t, c.Open(context.Background(), "a"))
	assert.Equal(t, Key{ChatID: "a", UserID: "u2"}, c.View().Key)
	assert.Equal(t, 2, fb.getCount("a"))
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_StreamsOneAssistantMessage(t *testing.T) {
	fb := newFakeBackend()
	list := &fakeList{}
	tr := &stream.Scripted{Events: []stream.Event{
		stream.ReasoningDelta{Text: "Let me "},
		stream.ReasoningDelta{Text: "think."},
		stream.TextDelta{Text: "Hello"},
		stream.TextDelta{Text: " world"},
		stream.Finish{Reason: "stop"},
	}}
	c := newController(fb, tr, list)
	key := c.StartNew()

	log := &statusLog{}
	c.OnChange(log.record)

	require.NoError(t, c.Send(context.Background(), "  hi there  "))

	v := c.View()
	assert.Equal(t, []model.Status{model.StatusSubmitted, model.StatusStreaming, model.StatusReady}, log.all())
	require.Len(t, v.Messages, 2)
	assert.Equal(t, model.RoleUser, v.Messages[0].Role)
	assert.Equal(t, "hi there", v.Messages[0].Text())

	reply := v.Messages[1]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	require.Len(t, reply.Parts, 2)
	assert.Equal(t, "Let me think.", reply.Parts[0].(model.ReasoningPart).Reasoning)
	assert.Equal(t, "Hello world", reply.Parts[1].(model.TextPart).Text)

	saved := fb.saved(key.ChatID)
	require.Len(t, saved, 2)
	assert.Equal(t, reply.ID, saved[1].ID)

	require.Len(t, list.touched, 1)
	assert.Equal(t, key.ChatID, list.touched[0].ID)
	assert.Equal(t, "hi there", v.Title)

	reqs := tr.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, model.DefaultModel, reqs[0].Model)
	assert.Equal(t, []string{"hi there"}, texts(reqs[0].Messages))
}

func TestSend_ToolCallsFoldInOrder(t *testing.T) {
	fb := newFakeBackend()
	tr := &stream.Scripted{Events: []stream.Event{
		stream.ToolCall{ID: "t1", Name: "current_time", Args: json.RawMessage(`{}`)},
		stream.ToolResult{ID: "t1", Result: json.RawMessage(`{"time":"noon"}`)},
		stream.TextDelta{Text: "It is noon."},
		stream.Finish{Reason: "stop"},
	}}
	c := newController(fb, tr, nil)
	c.StartNew()

	require.NoError(t, c.Send(context.Background(), "time?"))
	reply := c.View().Messages[1]
	require.Len(t, reply.Parts, 2)
	tool := reply.Parts[0].(model.ToolInvocationPart)
	assert.Equal(t, model.ToolStateResult, tool.State)
	assert.JSONEq(t, `{"time":"noon"}`, string(tool.Result))
	assert.Equal(t, "It is noon.", reply.Parts[1].(model.TextPart).Text)
}

func TestSend_Validation(t *testing.T) {
	c := newController(newFakeBackend(), &stream.Scripted{}, nil)
	assert.ErrorIs(t, c.Send(context.Background(), "   "), ErrEmptyMessage)
	assert.ErrorIs(t, c.Send(context.Background(), "hi"), ErrNoChat)
}

func TestSend_BusyWhileStreamingAndStopKeepsPartial(t *testing.T) {
	fb := newFakeBackend()
	tr := &manualTransport{events: make(chan stream.Event)}
	c := newController(fb, tr, nil)
	key := c.StartNew()

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "write a poem") }()

	tr.events <- stream.TextDelta{Text: "Roses are"}
	require.Eventually(t, func() bool {
		v := c.View()
		return v.Status == model.StatusStreaming && len(v.Messages) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.Send(context.Background(), "another"), ErrBusy)

	assert.True(t, c.Stop())
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, model.StatusReady, v.Status)
	assert.Nil(t, v.Err)
	assert.Equal(t, []string{"write a poem", "Roses are"}, texts(v.Messages))
	assert.Len(t, fb.saved(key.ChatID), 2, "partial reply is saved")
	assert.False(t, c.Stop())
}

func TestSend_StreamFailureKeepsPartial(t *testing.T) {
	fb := newFakeBackend()
	tr := &stream.Scripted{Events: []stream.Event{
		stream.TextDelta{Text: "Half an ans"},
		stream.Failure{Err: errors.New("connection reset")},
	}}
	c := newController(fb, tr, nil)
	c.StartNew()

	err := c.Send(context.Background(), "question")
	var ve *ViewError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindStream, ve.Kind)

	v := c.View()
	assert.Equal(t, model.StatusError, v.Status)
	require.NotNil(t, v.Err)
	assert.Equal(t, KindStream, v.Err.Kind)
	assert.Equal(t, []string{"question", "Half an ans"}, texts(v.Messages))

	// an error status does not block the next send
	c.DismissError()
	assert.Equal(t, model.StatusReady, c.View().Status)
}

func TestSend_TransportStartFailure(t *testing.T) {
	c := newController(newFakeBackend(), &stream.Scripted{StartErr: stream.ErrNoAPIKey}, nil)
	c.StartNew()

	err := c.Send(context.Background(), "hello")
	require.Error(t, err)
	v := c.View()
	assert.Equal(t, model.StatusError, v.Status)
	assert.Equal(t, KindStream, v.Err.Kind)
	assert.Len(t, v.Messages, 1)
}

func TestSend_PersistFailureSurfacesNetworkError(t *testing.T) {
	fb := newFakeBackend()
	fb.appendErr = &api.NetworkError{Op: "append messages", Status: 503, Err: errors.New("unavailable")}
	tr := &stream.Scripted{Events: []stream.Event{stream.TextDelta{Text: "ok"}, stream.Finish{}}}
	c := newController(fb, tr, nil)
	c.StartNew()

	require.Error(t, c.Send(context.Background(), "hi"))
	v := c.View()
	assert.Equal(t, model.StatusReady, v.Status)
	require.NotNil(t, v.Err)
	assert.Equal(t, KindNetwork, v.Err.Kind)
	assert.Len(t, v.Messages, 2)
}

func TestSend_NavigatingAwayStopsStream(t *testing.T) {
	fb := newFakeBackend(chat("b", "other chat"))
	tr := &manualTransport{events: make(chan stream.Event)}
	c := newController(fb, tr, nil)
	a := c.StartNew()

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "in a") }()
	tr.events <- stream.TextDelta{Text: "partial a"}
	require.Eventually(t, func() bool { return len(c.View().Messages) == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Open(context.Background(), "b"))
	require.NoError(t, <-done)

	v := c.View()
	assert.Equal(t, "b", v.Key.ChatID)
	assert.Equal(t, []string{"other chat"}, texts(v.Messages))
	assert.Equal(t, model.StatusReady, v.Status)

	// chat a kept its partial reply in the cache
	require.NoError(t, c.Open(context.Background(), a.ChatID))
	assert.Equal(t, []string{"in a", "partial a"}, texts(c.View().Messages))
	assert.Equal(t, 0, fb.getCount(a.ChatID))
}

// =============================================================================
// MODELS AND ERRORS
// =============================================================================

func TestSetModel(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.ModelInfo{ID: "other", Provider: "x", Name: "Other"})
	tr := &stream.Scripted{Events: []stream.Event{stream.Finish{}}}
	c := New(Options{Backend: newFakeBackend(), Transport: tr, Models: reg, UserID: "u1"})
	assert.Equal(t, model.DefaultModel, c.View().Model)

	err := c.SetModel("nope")
	var ve *ViewError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindValidation, ve.Kind)

	require.NoError(t, c.SetModel("other"))
	c.StartNew()
	require.NoError(t, c.Send(context.Background(), "hi"))
	assert.Equal(t, "other", tr.Requests()[0].Model)
	assert.Len(t, c.Models(), 2)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"network", &api.NetworkError{Op: "x", Err: errors.New("refused")}, KindNetwork},
		{"validation", &api.ValidationError{Op: "x", Status: 400, Message: "bad"}, KindValidation},
		{"stream", stream.Failure{Err: errors.New("eof")}, KindStream},
		{"no api key", stream.ErrNoAPIKey, KindStream},
		{"busy", ErrBusy, KindValidation},
		{"other", errors.New("???"), KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
	assert.Nil(t, Classify(nil))
}
