// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package querycache is a small read-through cache for data fetched from the
// chatdeck API. Entries are keyed by an explicit comparable key, carry the
// time they were fetched, and become stale after a fixed window. Stale
// entries are still served; the caller decides when to refresh them.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStaleAfter is the staleness window used when none is configured.
const DefaultStaleAfter = 5 * time.Minute

// Entry is a cached value and when it was fetched.
type Entry[V any] struct {
	Data      V
	FetchedAt time.Time
}

// Cache maps keys to entries. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	entries    map[K]Entry[V]
	staleAfter time.Duration
	now        func() time.Time
	group      singleflight.Group
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache with the given staleness window. A non-positive window
// uses DefaultStaleAfter.
func New[K comparable, V any](staleAfter time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Cache[K, V]{
		entries:    make(map[K]Entry[V]),
		staleAfter: staleAfter,
		now:        o.now,
	}
}

// Get returns the entry for key, stale or not.
func (c *Cache[K, V]) Get(key K) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores data for key, fetched now.
func (c *Cache[K, V]) Set(key K, data V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Data: data, FetchedAt: c.now()}
}

// Update rewrites the data of an existing entry without changing when it was
// fetched. It reports false when key is absent.
func (c *Cache[K, V]) Update(key K, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.Data = fn(e.Data)
	c.entries[key] = e
	return true
}

// Invalidate drops key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IsStale reports whether e is older than the staleness window.
func (c *Cache[K, V]) IsStale(e Entry[V]) bool {
	return c.now().Sub(e.FetchedAt) >= c.staleAfter
}

// StaleAfter returns the staleness window.
func (c *Cache[K, V]) StaleAfter() time.Duration {
	return c.staleAfter
}

// Fetch runs fn and stores its result under key. Concurrent fetches of the
// same key share one call. Errors are returned and not cached.
func (c *Cache[K, V]) Fetch(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	v, err, _ := c.group.Do(flightKey(key), func() (any, error) {
		data, err := fn(ctx)
		if err != nil {
			return data, err
		}
		c.Set(key, data)
		return data, nil
	})
	data, _ := v.(V)
	return data, err
}

// flightKey renders key unambiguously; %#v quotes string fields.
func flightKey[K comparable](key K) string {
	return fmt.Sprintf("%#v", key)
}
