// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"sync"
	"time"
)

// Scripted replays a fixed list of events. It records every request it
// receives.
type Scripted struct {
	Events []Event

	// Delay is waited before each event
	Delay time.Duration

	// StartErr makes Stream fail before streaming
	StartErr error

	// Gate, when set, blocks the stream before its first event until closed
	Gate chan struct{}

	mu       sync.Mutex
	requests []Request
}

// Stream implements Transport.
func (s *Scripted) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.StartErr != nil {
		return nil, s.StartErr
	}

	ch := make(chan Event)
	go func() {
		defer close(ch)
		if s.Gate != nil {
			select {
			case <-s.Gate:
			case <-ctx.Done():
				return
			}
		}
		for _, ev := range s.Events {
			if s.Delay > 0 {
				select {
				case <-time.After(s.Delay):
				case <-ctx.Done():
					return
				}
			}
			if !send(ctx, ch, ev) {
				return
			}
		}
	}()
	return ch, nil
}

// Requests returns the requests received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
