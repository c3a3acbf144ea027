// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"errors"

	"github.com/jeranaias/chatdeck/internal/api"
	"github.com/jeranaias/chatdeck/internal/stream"
)

var (
	// ErrBusy is returned by Send while a response is in flight.
	ErrBusy = errors.New("a response is already in progress")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoChat is returned by Send before a chat is open.
	ErrNoChat = errors.New("no chat is open")
)

// Kind classifies a failure for display.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindValidation
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network failure"
	case KindValidation:
		return "validation failure"
	case KindStream:
		return "stream failure"
	default:
		return "error"
	}
}

// ViewError is a failure shown inline in the conversation.
type ViewError struct {
	Kind Kind
	Err  error
}

func (e *ViewError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *ViewError) Unwrap() error {
	return e.Err
}

// Classify maps an error from the persistence or stream layer to a
// ViewError. Not-found is never classified; callers treat it as empty.
func Classify(err error) *ViewError {
	if err == nil {
		return nil
	}
	var ve *ViewError
	if errors.As(err, &ve) {
		return ve
	}

	var validation *api.ValidationError
	var failure stream.Failure
	switch {
	case errors.As(err, &validation),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrBusy),
		errors.Is(err, ErrNoChat):
		return &ViewError{Kind: KindValidation, Err: err}
	case errors.As(err, &failure), errors.Is(err, stream.ErrNoAPIKey):
		return &ViewError{Kind: KindStream, Err: err}
	default:
		return &ViewError{Kind: KindNetwork, Err: err}
	}
}
