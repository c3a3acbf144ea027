// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/jeranaias/chatdeck/internal/logger"
)

// =============================================================================
// CODED ERRORS
// =============================================================================

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

// CodedError attaches an HTTP status to err.
func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

// CodedErrorf is CodedError with a formatted message.
func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// =============================================================================
// REQUEST DECODING
// =============================================================================

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// ParseRequest decodes a JSON body into T.
func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request body")
	}
	return data, nil
}

// ParseRequestQueryParams decodes the query string into T using `schema` tags.
func ParseRequestQueryParams[T any](r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}
	if err := queryDecoder.Decode(&data, r.Form); err != nil {
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}
	return data, nil
}

// URLParam returns a required path parameter.
func URLParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return "", CodedErrorf(http.StatusBadRequest, "missing {%v} url parameter", key)
	}
	return param, nil
}

// =============================================================================
// RESPONSES
// =============================================================================

// withStatus lets a handler pick a success status other than 200.
type withStatus struct {
	code int
	body any
}

func created(body any) any  { return withStatus{code: http.StatusCreated, body: body} }
func accepted(body any) any { return withStatus{code: http.StatusAccepted, body: body} }
func noContent() any        { return withStatus{code: http.StatusNoContent} }

// RestHandler adapts a handler returning (body, error) to http.HandlerFunc.
func RestHandler(log *logger.Logger, handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			code := http.StatusInternalServerError
			var cerr *codedError
			if errors.As(err, &cerr) {
				code = cerr.code
			}
			msg := err.Error()
			if code == http.StatusInternalServerError {
				log.Error("internal server error", "method", r.Method, "path", r.URL.Path, "error", err)
				msg = "internal server error"
			}
			WriteJSON(w, log, code, ErrorResponse{Error: msg, Code: code})
			return
		}

		code := http.StatusOK
		if ws, ok := res.(withStatus); ok {
			code, res = ws.code, ws.body
		}
		if code == http.StatusNoContent {
			w.WriteHeader(code)
			return
		}
		if res == nil {
			res = struct{}{}
		}
		WriteJSON(w, log, code, res)
	}
}

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, log *logger.Logger, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("error serializing response body", "error", err)
	}
}
