// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse is the envelope printed by commands run with --json.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write prints the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Output runs handler and prints its result. In JSON mode the result or
// error is wrapped in a JSONResponse; otherwise render prints the result.
func Output[T any](w io.Writer, jsonMode bool, command string, handler func() (T, error), render func(io.Writer, T) error) error {
	data, err := handler()
	if !jsonMode {
		if err != nil {
			return err
		}
		return render(w, data)
	}
	if err != nil {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return err
	}
	return NewJSONResponse(command, data).Write(w)
}

// =============================================================================
// TABLES
// =============================================================================

// Table is a plain-text table with columns padded by display width, so
// wide characters line up.
type Table struct {
	Headers []string
	Rows    [][]string
	// MaxWidth truncates cells wider than this; 0 means no limit
	MaxWidth int
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Write prints the table.
func (t *Table) Write(w io.Writer) error {
	widths := make([]int, len(t.Headers))
	cell := func(s string) string {
		if t.MaxWidth > 0 && runewidth.StringWidth(s) > t.MaxWidth {
			return runewidth.Truncate(s, t.MaxWidth, "...")
		}
		return s
	}
	measure := func(row []string) {
		for i := range widths {
			if i < len(row) {
				if n := runewidth.StringWidth(cell(row[i])); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}
	measure(t.Headers)
	for _, r := range t.Rows {
		measure(r)
	}

	line := func(row []string) error {
		parts := make([]string, len(widths))
		for i := range widths {
			var v string
			if i < len(row) {
				v = cell(row[i])
			}
			if i < len(widths)-1 {
				v = runewidth.FillRight(v, widths[i])
			}
			parts[i] = v
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
		return err
	}

	if err := line(t.Headers); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := line(r); err != nil {
			return err
		}
	}
	return nil
}
