// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/querycache"
	"github.com/jeranaias/chatdeck/internal/stream"
)

// Key identifies a cached transcript.
type Key struct {
	ChatID string
	UserID string
}

// Backend is the persistence surface the controller needs.
type Backend interface {
	GetChat(ctx context.Context, chatID string) (model.Chat, error)
	AppendMessages(ctx context.Context, chatID string, msgs []model.Message) (model.ChatSummary, error)
}

// ChatList is told about chats that received messages.
type ChatList interface {
	Touch(chat model.ChatSummary)
}

// View is what the renderer shows for the open chat.
type View struct {
	Key      Key
	Title    string
	Messages []model.Message
	Status   model.Status
	Loading  bool
	Err      *ViewError
	Model    string
}

// Options configures a Controller.
type Options struct {
	Backend   Backend
	Transport stream.Transport
	// List may be nil
	List ChatList
	// Models defaults to the builtin registry
	Models *model.Registry
	UserID string
	// Model is the initial model; empty selects the registry default
	Model  string
	System string

	StaleAfter time.Duration
	Clock      func() time.Time
	Log        *logger.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the open chat. Safe for concurrent use: Open and Send
// block and are meant to run off the UI goroutine, and listeners receive
// snapshots.
type Controller struct {
	backend   Backend
	transport stream.Transport
	list      ChatList
	models    *model.Registry
	system    string
	cache     *querycache.Cache[Key, model.Chat]
	log       *logger.Logger

	mu        sync.Mutex
	userID    string
	view      View
	version   uint64 // bumped on every local change to the open transcript
	streamSeq uint64
	cancel    context.CancelFunc
	listeners []func(View)

	wg sync.WaitGroup
}

// New creates a controller with no chat open.
func New(opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	models := opts.Models
	if models == nil {
		models = model.NewRegistry()
	}
	selected := opts.Model
	if _, ok := models.Lookup(selected); !ok {
		selected = models.Default()
	}
	var cacheOpts []querycache.Option
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, querycache.WithClock(opts.Clock))
	}

	return &Controller{
		backend:   opts.Backend,
		transport: opts.Transport,
		list:      opts.List,
		models:    models,
		system:    opts.System,
		cache:     querycache.New[Key, model.Chat](opts.StaleAfter, cacheOpts...),
		log:       log.With("component", "controller"),
		userID:    opts.UserID,
		view:      View{Status: model.StatusReady, Model: selected, Messages: []model.Message{}},
	}
}

// OnChange registers a listener called with a snapshot after every change.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// View returns a snapshot of the open chat.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until background refreshes have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) snapshotLocked() View {
	v := c.view
	v.Messages = cloneMessages(c.view.Messages)
	return v
}

func (c *Controller) unlockAndNotify() {
	v := c.snapshotLocked()
	listeners := append([]func(View){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

// SetUser switches identity. The open chat is closed because cache keys
// include the user.
func (c *Controller) SetUser(userID string) {
	c.mu.Lock()
	c.stopLocked()
	c.userID = userID
	c.view = View{Status: model.StatusReady, Model: c.view.Model, Messages: []model.Message{}}
	c.version++
	c.unlockAndNotify()
}

// Forget drops the cached transcript of a deleted chat.
func (c *Controller) Forget(chatID string) {
	c.mu.Lock()
	c.cache.Invalidate(Key{ChatID: chatID, UserID: c.userID})
	c.mu.Unlock()
}

// =============================================================================
// OPEN
// =============================================================================

// Open shows a chat. A cached transcript is shown at once; if it is stale a
// refresh runs in the background. Otherwise Open fetches and blocks. A chat
// the server does not know is an empty conversation. Opening a chat stops
// any response still streaming.
func (c *Controller) Open(ctx context.Context, chatID string) error {
	c.mu.Lock()
	c.stopLocked()
	key := Key{ChatID: chatID, UserID: c.userID}
	c.view = View{Key: key, Status: model.StatusReady, Model: c.view.Model, Messages: []model.Message{}}
	c.version++
	version := c.version

	if e, ok := c.cache.Get(key); ok {
		c.showLocked(e.Data)
		stale := c.cache.IsStale(e)
		c.unlockAndNotify()
		if stale {
			c.log.Debug("transcript is stale, refreshing", "chat_id", chatID)
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				_ = c.load(ctx, key, version)
			}()
		}
		return nil
	}

	c.view.Loading = true
	c.unlockAndNotify()
	return c.load(ctx, key, version)
}

// StartNew opens a conversation that does not exist yet. It is created on
// the server by the first Send.
func (c *Controller) StartNew() Key {
	c.mu.Lock()
	c.stopLocked()
	key := Key{ChatID: model.NewID(), UserID: c.userID}
	c.view = View{Key: key, Status: model.StatusReady, Model: c.view.Model, Messages: []model.Message{}}
	c.version++
	c.unlockAndNotify()
	return key
}

// Reload drops the cached transcript of the open chat and fetches it.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.view.Status.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	key := c.view.Key
	if key.ChatID == "" {
		c.mu.Unlock()
		return ErrNoChat
	}
	c.cache.Invalidate(key)
	c.view.Loading = true
	c.view.Err = nil
	c.view.Status = model.StatusReady
	c.version++
	version := c.version
	c.unlockAndNotify()
	return c.load(ctx, key, version)
}

// load fetches key. The result populates the cache in any case but only
// reaches the view when key is still open and the transcript has not
// changed locally since version.
func (c *Controller) load(ctx context.Context, key Key, version uint64) error {
	chat, err := c.cache.Fetch(ctx, key, func(ctx context.Context) (model.Chat, error) {
		chat, err := c.backend.GetChat(ctx, key.ChatID)
		if errors.Is(err, api.ErrNotFound) {
			return model.EmptyChat(key.ChatID), nil
		}
		return chat, err
	})

	c.mu.Lock()
	if c.view.Key != key {
		c.mu.Unlock()
		c.log.Debug("discarding transcript of a chat no longer open", "chat_id", key.ChatID)
		return nil
	}
	c.view.Loading = false
	if c.version != version {
		if err == nil {
			c.writeCache(key, c.view.Title, c.view.Messages)
		}
		c.unlockAndNotify()
		return nil
	}
	if err != nil {
		c.log.Warn("transcript fetch failed", "chat_id", key.ChatID, "error", err)
		c.view.Err = Classify(err)
		c.view.Status = model.StatusError
		c.unlockAndNotify()
		return err
	}
	c.showLocked(chat)
	c.unlockAndNotify()
	return nil
}

func (c *Controller) showLocked(chat model.Chat) {
	c.view.Title = chat.Title
	c.view.Messages = cloneMessages(chat.Messages)
	if c.view.Messages == nil {
		c.view.Messages = []model.Message{}
	}
	c.view.Err = nil
}

// writeCache stores a transcript for key. An existing entry keeps its
// fetch time.
func (c *Controller) writeCache(key Key, title string, msgs []model.Message) {
	msgs = cloneMessages(msgs)
	updated := c.cache.Update(key, func(old model.Chat) model.Chat {
		old.Messages = msgs
		if title != "" {
			old.Title = title
		}
		return old
	})
	if updated {
		return
	}
	chat := model.EmptyChat(key.ChatID)
	chat.UserID = key.UserID
	if title != "" {
		chat.Title = title
	}
	chat.Messages = msgs
	c.cache.Set(key, chat)
}

// =============================================================================
// SEND
// =============================================================================

// Send appends a user message and streams the assistant's reply into one
// assistant message, blocking until the stream settles. Status goes
// submitted, then streaming on the first event, then ready, or error with
// the partial reply kept. The turn is then saved and the chat list told.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.view.Status.Busy() || c.view.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	key := c.view.Key
	if key.ChatID == "" {
		c.mu.Unlock()
		return ErrNoChat
	}

	user := model.NewUserMessage(key.ChatID, text)
	c.view.Messages = append(c.view.Messages, user)
	c.view.Status = model.StatusSubmitted
	c.view.Err = nil
	c.version++
	c.streamSeq++
	seq := c.streamSeq
	title := c.view.Title
	history := cloneMessages(c.view.Messages)
	req := stream.Request{Model: c.view.Model, Messages: history, System: c.system}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.writeCache(key, title, history)
	c.unlockAndNotify()

	c.log.Debug("sending", "chat_id", key.ChatID, "model", req.Model)
	acc := model.NewAccumulator(key.ChatID)
	failure := c.consume(streamCtx, req, acc, key, seq)

	turn := []model.Message{user}
	final := history
	if !acc.Empty() {
		reply := acc.Message()
		turn = append(turn, reply)
		final = append(final, reply)
	}

	c.mu.Lock()
	if c.streamSeq == seq {
		c.cancel = nil
	}
	if c.view.Key == key && c.streamSeq == seq {
		c.view.Messages = cloneMessages(final)
		if failure != nil {
			c.view.Status = model.StatusError
			c.view.Err = &ViewError{Kind: KindStream, Err: failure}
		} else {
			c.view.Status = model.StatusReady
		}
		c.version++
	}
	c.writeCache(key, title, final)
	c.unlockAndNotify()

	if err := c.persist(ctx, key, turn); err != nil && failure == nil {
		return err
	}
	if failure != nil {
		return &ViewError{Kind: KindStream, Err: failure}
	}
	return nil
}

// consume folds the stream into acc and returns the failure that ended it,
// if any. A stream ended by Stop or navigation is not a failure.
func (c *Controller) consume(ctx context.Context, req stream.Request, acc *model.Accumulator, key Key, seq uint64) error {
	ch, err := c.transport.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn("stream did not start", "chat_id", key.ChatID, "error", err)
		return err
	}

	var failure error
	for ev := range ch {
		if f, ok := ev.(stream.Failure); ok {
			failure = f
			continue
		}
		if err := stream.Fold(acc, ev); err != nil {
			c.log.Warn("dropping stream event", "chat_id", key.ChatID, "error", err)
			continue
		}
		c.applyStreaming(key, seq, acc)
	}
	if ctx.Err() != nil {
		return nil
	}
	if failure != nil {
		c.log.Warn("stream failed", "chat_id", key.ChatID, "error", failure)
	}
	return failure
}

// applyStreaming shows the reply so far, if its chat is still open.
func (c *Controller) applyStreaming(key Key, seq uint64, acc *model.Accumulator) {
	c.mu.Lock()
	if c.view.Key != key || c.streamSeq != seq {
		c.mu.Unlock()
		return
	}
	c.view.Status = model.StatusStreaming
	if !acc.Empty() {
		c.view.Messages = upsert(c.view.Messages, acc.Message())
	}
	c.version++
	c.unlockAndNotify()
}

// persist saves a turn. It runs even after Stop, so the partial reply is
// kept on the server too.
func (c *Controller) persist(ctx context.Context, key Key, turn []model.Message) error {
	summary, err := c.backend.AppendMessages(context.WithoutCancel(ctx), key.ChatID, turn)
	if err != nil {
		c.log.Warn("failed to save turn", "chat_id", key.ChatID, "error", err)
		c.mu.Lock()
		if c.view.Key == key && c.view.Err == nil {
			c.view.Err = Classify(err)
		}
		c.unlockAndNotify()
		return err
	}

	if c.list != nil {
		c.list.Touch(summary)
	}
	c.mu.Lock()
	if c.view.Key == key && summary.Title != "" && summary.Title != c.view.Title {
		c.view.Title = summary.Title
		c.cache.Update(key, func(chat model.Chat) model.Chat {
			chat.Title = summary.Title
			return chat
		})
	}
	c.unlockAndNotify()
	return nil
}

// =============================================================================
// CONTROLS
// =============================================================================

// Stop cancels the streaming response. The partial reply is kept and the
// status returns to ready once the stream has wound down. It reports
// whether anything was streaming.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Controller) stopLocked() bool {
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

// DismissError clears the inline error.
func (c *Controller) DismissError() {
	c.mu.Lock()
	c.view.Err = nil
	if c.view.Status == model.StatusError {
		c.view.Status = model.StatusReady
	}
	c.unlockAndNotify()
}

// SetModel selects the model for later sends.
func (c *Controller) SetModel(id string) error {
	if _, ok := c.models.Lookup(id); !ok {
		return &ViewError{Kind: KindValidation, Err: fmt.Errorf("unknown model %q", id)}
	}
	c.mu.Lock()
	c.view.Model = id
	c.unlockAndNotify()
	return nil
}

// Models lists the selectable models.
func (c *Controller) Models() []model.ModelInfo {
	return c.models.All()
}

// =============================================================================
// HELPERS
// =============================================================================

func cloneMessages(msgs []model.Message) []model.Message {
	if msgs == nil {
		return nil
	}
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// upsert replaces the message with the same id or appends it.
func upsert(msgs []model.Message, m model.Message) []model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == m.ID {
			msgs[i] = m
			return msgs
		}
	}
	return append(msgs, m)
}
