// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct {
	ChatID string
	UserID string
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestKeyedByBothFields(t *testing.T) {
	c := New[key, string](time.Minute)
	c.Set(key{"c1", "u1"}, "mine")

	_, ok := c.Get(key{"c1", "u2"})
	assert.False(t, ok)
	e, ok := c.Get(key{"c1", "u1"})
	require.True(t, ok)
	assert.Equal(t, "mine", e.Data)
}

func TestStaleness(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[key, int](5*time.Minute, WithClock(clock.Now))
	c.Set(key{"c", "u"}, 1)

	e, _ := c.Get(key{"c", "u"})
	assert.False(t, c.IsStale(e))

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.False(t, c.IsStale(e))

	clock.Advance(time.Second)
	assert.True(t, c.IsStale(e))
}

func TestDefaultWindow(t *testing.T) {
	c := New[string, int](0)
	assert.Equal(t, DefaultStaleAfter, c.StaleAfter())
}

func TestUpdateKeepsFetchedAt(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	c := New[string, []string](time.Minute, WithClock(clock.Now))
	c.Set("k", []string{"a"})
	clock.Advance(30 * time.Second)

	ok := c.Update("k", func(v []string) []string { return append(v, "b") })
	require.True(t, ok)

	e, _ := c.Get("k")
	assert.Equal(t, []string{"a", "b"}, e.Data)
	assert.Equal(t, time.Unix(100, 0), e.FetchedAt)

	assert.False(t, c.Update("missing", func(v []string) []string { return v }))
}

func TestInvalidate(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("k", 1)
	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestFetchStoresSuccess(t *testing.T) {
	c := New[key, string](time.Minute)
	v, err := c.Fetch(context.Background(), key{"c", "u"}, func(context.Context) (string, error) {
		return "data", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "data", v)

	e, ok := c.Get(key{"c", "u"})
	require.True(t, ok)
	assert.Equal(t, "data", e.Data)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := New[string, string](time.Minute)
	boom := errors.New("boom")
	_, err := c.Fetch(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestFetchDeduplicates(t *testing.T) {
	c := New[key, int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	fn := func(context.Context) (int, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Fetch(context.Background(), key{"c", "u"}, fn)
	}()
	<-started
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Fetch(context.Background(), key{"c", "u"}, fn)
		}(i)
	}
	// give the followers time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}
