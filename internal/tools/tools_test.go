// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgFixture = `
<div class="result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&amp;rut=abc">The <b>Go</b> Programming Language</a>
  </h2>
  <a class="result__snippet" href="x">Go is an open source programming language &amp; more.</a>
</div>
<div class="result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="https://pkg.go.dev/">Go Packages</a>
  </h2>
  <a class="result__snippet" href="y">Discover   packages</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="javascript:void(0)">Ad</a>
</div>
`

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	names := []string{}
	for _, tool := range r.All() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"current_time", "web_search"}, names)
	assert.Nil(t, r.Get("missing"))
}

func TestSchema_JSONSchema(t *testing.T) {
	schema := WebSearchTool().Schema.JSONSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"query"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	query := props["query"].(map[string]interface{})
	assert.Equal(t, "string", query["type"])
}

func TestRun_UnknownTool(t *testing.T) {
	_, err := NewRegistry().Run(context.Background(), "rm_rf", nil)
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestRun_ValidatesArguments(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	_, err := r.Run(ctx, "web_search", json.RawMessage(`{}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "query", verr.Param)

	_, err = r.Run(ctx, "web_search", json.RawMessage(`{"query": 7}`))
	require.True(t, errors.As(err, &verr))

	_, err = r.Run(ctx, "web_search", json.RawMessage(`not json`))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "arguments", verr.Param)
}

func TestRun_CurrentTime(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewEmptyRegistry()
	tool := CurrentTimeTool()
	tool.Executor = &CurrentTimeExecutor{Now: func() time.Time { return fixed }}
	r.Register(tool)

	out, err := r.Run(context.Background(), "current_time", json.RawMessage(`{"timezone":"Asia/Tokyo"}`))
	require.NoError(t, err)
	var got TimeResult
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Asia/Tokyo", got.Timezone)
	assert.Equal(t, "2025-06-01T21:00:00+09:00", got.Time)
	assert.Equal(t, fixed.Unix(), got.Unix)

	out, err = r.Run(context.Background(), "current_time", nil)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "UTC", got.Timezone)

	out, err = r.Run(context.Background(), "current_time", json.RawMessage(`{"timezone":"Mars/Olympus"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"unknown timezone Mars/Olympus"}`, string(out))
}

func TestParseDDGHTML(t *testing.T) {
	results := parseDDGHTML(ddgFixture)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{
		Title:   "The Go Programming Language",
		URL:     "https://go.dev/",
		Snippet: "Go is an open source programming language & more.",
	}, results[0])
	assert.Equal(t, "https://pkg.go.dev/", results[1].URL)
	assert.Equal(t, "Discover packages", results[1].Snippet)
}

func TestWebSearch_AgainstFakeServer(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(ddgFixture))
	}))
	defer ts.Close()

	r := NewEmptyRegistry()
	tool := WebSearchTool()
	tool.Executor = &DuckDuckGoSearchExecutor{BaseURL: ts.URL}
	r.Register(tool)

	out, err := r.Run(context.Background(), "web_search", json.RawMessage(`{"query":"golang","max_results":1}`))
	require.NoError(t, err)
	assert.Equal(t, "golang", gotQuery)

	var got SearchResults
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "golang", got.Query)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "https://go.dev/", got.Results[0].URL)
}

func TestWebSearch_HTTPErrorIsToolFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	exec := &DuckDuckGoSearchExecutor{BaseURL: ts.URL}
	res, err := exec.Execute(context.Background(), map[string]interface{}{"query": "x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "503")
}

func TestExtractActualURL(t *testing.T) {
	assert.Equal(t, "https://a.b/c?d=1", extractActualURL("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.b%2Fc%3Fd%3D1"))
	assert.Equal(t, "http://x.y", extractActualURL("http://x.y"))
	assert.Empty(t, extractActualURL("/relative"))
}

func TestResultPayload(t *testing.T) {
	out, err := Result{Success: true, Output: "plain"}.Payload()
	require.NoError(t, err)
	assert.Equal(t, `"plain"`, string(out))

	out, err = Result{Success: false}.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"tool failed"}`, string(out))

	assert.JSONEq(t, `{"error":"boom"}`, string(ErrorPayload(errors.New("boom"))))
}
