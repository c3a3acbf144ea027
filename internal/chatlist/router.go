// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatlist

import (
	"strings"
	"sync"
)

// HomeRoute is the new-chat view.
const HomeRoute = "/"

const chatPrefix = "/chat/"

// ChatRoute is the route of one conversation.
func ChatRoute(id string) string {
	return chatPrefix + id
}

// ChatIDFromRoute extracts the chat id of a conversation route.
func ChatIDFromRoute(route string) (string, bool) {
	if !strings.HasPrefix(route, chatPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(route, chatPrefix)
	return id, id != ""
}

// Navigator reads and changes the current route.
type Navigator interface {
	Current() string
	Navigate(route string)
}

// Router is an in-memory Navigator. Safe for concurrent use.
type Router struct {
	mu       sync.Mutex
	current  string
	handlers []func(string)
}

// NewRouter starts at HomeRoute.
func NewRouter() *Router {
	return &Router{current: HomeRoute}
}

// Current returns the current route.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate changes the route and notifies handlers, even when the route
// does not change.
func (r *Router) Navigate(route string) {
	if route == "" {
		route = HomeRoute
	}
	r.mu.Lock()
	r.current = route
	handlers := append([]func(string){}, r.handlers...)
	r.mu.Unlock()

	for _, h := range handlers {
		h(route)
	}
}

// OnNavigate registers a handler called after every navigation.
func (r *Router) OnNavigate(fn func(route string)) {
	r.mu.Lock()
	r.handlers = append(r.handlers, fn)
	r.mu.Unlock()
}
