// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AlignsByDisplayWidth(t *testing.T) {
	tbl := &Table{Headers: []string{"ID", "TITLE", "UPDATED"}}
	tbl.AddRow("a1", "日本語", "today")
	tbl.AddRow("b2", "plain", "yesterday")

	var buf bytes.Buffer
	require.NoError(t, tbl.Write(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  TITLE   UPDATED", lines[0])
	assert.Equal(t, "a1  日本語  today", lines[1])
	assert.Equal(t, "b2  plain   yesterday", lines[2])
}

func TestTable_TruncatesWideCells(t *testing.T) {
	tbl := &Table{Headers: []string{"TITLE"}, MaxWidth: 8}
	tbl.AddRow("a very long title")

	var buf bytes.Buffer
	require.NoError(t, tbl.Write(&buf))
	assert.Contains(t, buf.String(), "a ver...")
}

func TestOutput(t *testing.T) {
	render := func(w io.Writer, n int) error {
		_, err := io.WriteString(w, "plain output\n")
		return err
	}

	var buf bytes.Buffer
	require.NoError(t, Output(&buf, false, "x", func() (int, error) { return 1, nil }, render))
	assert.Equal(t, "plain output\n", buf.String())

	buf.Reset()
	require.NoError(t, Output(&buf, true, "x", func() (int, error) { return 7, nil }, render))
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, float64(7), resp.Data)
	assert.Equal(t, "x", resp.Command)

	buf.Reset()
	boom := errors.New("boom")
	err := Output(&buf, true, "x", func() (int, error) { return 0, boom }, render)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", *resp.Error)
}
