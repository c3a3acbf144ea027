// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/tools"
)

// =============================================================================
// FAKE PROVIDER
// =============================================================================

func chunk(delta string, finish string) string {
	fr := "null"
	if finish != "" {
		fr = fmt.Sprintf("%q", finish)
	}
	return fmt.Sprintf(`{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":%s,"finish_reason":%s}]}`, delta, fr)
}

// fakeProvider answers each POST with the next scripted list of chunks.
type fakeProvider struct {
	mu     sync.Mutex
	rounds [][]string
	bodies []string
	status int
	srv    *httptest.Server
}

func newFakeProvider(t *testing.T, rounds ...[]string) *fakeProvider {
	fp := &fakeProvider{rounds: rounds}
	fp.srv = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fp.mu.Lock()
	fp.bodies = append(fp.bodies, string(body))
	n := len(fp.bodies) - 1
	status := fp.status
	fp.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"error":{"message":"upstream exploded"}}`))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	if n < len(fp.rounds) {
		for _, c := range fp.rounds[n] {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (fp *fakeProvider) requests() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]string(nil), fp.bodies...)
}

func newTransport(fp *fakeProvider, toolsOn bool, reg *tools.Registry) *OpenAITransport {
	cfg := config.ProviderConfig{
		BaseURL:  fp.srv.URL + "/v1",
		APIKey:   "test-key",
		MaxSteps: 3,
		Tools:    toolsOn,
	}
	return NewOpenAITransport(cfg, reg, nil, option.WithMaxRetries(0))
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
			return out
		}
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestOpenAITransport_TextAndReasoning(t *testing.T) {
	fp := newFakeProvider(t, []string{
		chunk(`{"role":"assistant","reasoning_content":"Let me think"}`, ""),
		chunk(`{"reasoning_content":" harder"}`, ""),
		chunk(`{"content":"Hello"}`, ""),
		chunk(`{"content":" world"}`, "stop"),
	})
	tr := newTransport(fp, false, nil)

	ch, err := tr.Stream(context.Background(), Request{
		Model:    "deepseek",
		System:   "be brief",
		Messages: []model.Message{model.NewUserMessage("c1", "hi")},
	})
	require.NoError(t, err)
	events := collect(t, ch)

	assert.Equal(t, []Event{
		ReasoningDelta{Text: "Let me think"},
		ReasoningDelta{Text: " harder"},
		TextDelta{Text: "Hello"},
		TextDelta{Text: " world"},
		Finish{Reason: "stop"},
	}, events)

	reqs := fp.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "deepseek", gjson.Get(reqs[0], "model").String())
	assert.True(t, gjson.Get(reqs[0], "stream").Bool())
	assert.Equal(t, "system", gjson.Get(reqs[0], "messages.0.role").String())
	assert.Equal(t, "be brief", gjson.Get(reqs[0], "messages.0.content").String())
	assert.Equal(t, "hi", gjson.Get(reqs[0], "messages.1.content").String())
	assert.False(t, gjson.Get(reqs[0], "tools").Exists())
}

func TestOpenAITransport_ToolRound(t *testing.T) {
	fp := newFakeProvider(t,
		[]string{
			chunk(`{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"current_time","arguments":""}}]}`, ""),
			chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"{\"timezone\":"}}]}`, ""),
			chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"\"UTC\"}"}}]}`, "tool_calls"),
		},
		[]string{
			chunk(`{"content":"It is noon."}`, "stop"),
		},
	)
	reg := tools.NewEmptyRegistry()
	clock := tools.CurrentTimeTool()
	clock.Executor = &tools.CurrentTimeExecutor{Now: func() time.Time {
		return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}}
	reg.Register(clock)
	tr := newTransport(fp, true, reg)

	ch, err := tr.Stream(context.Background(), Request{Model: "deepseek", Messages: []model.Message{model.NewUserMessage("c", "time?")}})
	require.NoError(t, err)
	events := collect(t, ch)
	require.Len(t, events, 4)

	call, ok := events[0].(ToolCall)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "current_time", call.Name)
	assert.JSONEq(t, `{"timezone":"UTC"}`, string(call.Args))

	res, ok := events[1].(ToolResult)
	require.True(t, ok)
	assert.Equal(t, "call_1", res.ID)
	assert.Equal(t, "2025-01-01T12:00:00Z", gjson.GetBytes(res.Result, "time").String())

	assert.Equal(t, TextDelta{Text: "It is noon."}, events[2])
	assert.Equal(t, Finish{Reason: "stop"}, events[3])

	reqs := fp.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "current_time", gjson.Get(reqs[0], "tools.0.function.name").String())
	// second round carries the assistant tool call and the tool result
	assert.Equal(t, "assistant", gjson.Get(reqs[1], "messages.1.role").String())
	assert.Equal(t, "call_1", gjson.Get(reqs[1], "messages.1.tool_calls.0.id").String())
	assert.Equal(t, "tool", gjson.Get(reqs[1], "messages.2.role").String())
	assert.Equal(t, "call_1", gjson.Get(reqs[1], "messages.2.tool_call_id").String())
}

func TestOpenAITransport_UpstreamFailure(t *testing.T) {
	fp := newFakeProvider(t)
	fp.status = http.StatusInternalServerError
	tr := newTransport(fp, false, nil)

	ch, err := tr.Stream(context.Background(), Request{Model: "deepseek", Messages: []model.Message{model.NewUserMessage("c", "hi")}})
	require.NoError(t, err)
	events := collect(t, ch)
	require.Len(t, events, 1)
	failure, ok := events[0].(Failure)
	require.True(t, ok)
	assert.Error(t, failure.Err)
}

func TestOpenAITransport_NoAPIKey(t *testing.T) {
	tr := NewOpenAITransport(config.ProviderConfig{}, nil, nil)
	_, err := tr.Stream(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}

func TestOpenAITransport_UpstreamModelOverride(t *testing.T) {
	fp := newFakeProvider(t, []string{chunk(`{"content":"ok"}`, "stop")})
	cfg := config.ProviderConfig{BaseURL: fp.srv.URL, APIKey: "k", UpstreamModel: "deepseek-chat"}
	tr := NewOpenAITransport(cfg, nil, nil, option.WithMaxRetries(0))

	ch, err := tr.Stream(context.Background(), Request{Model: "deepseek"})
	require.NoError(t, err)
	collect(t, ch)
	assert.Equal(t, "deepseek-chat", gjson.Get(fp.requests()[0], "model").String())
}

func TestProviderMessages(t *testing.T) {
	assistant := model.Message{
		ID:   "a1",
		Role: model.RoleAssistant,
		Parts: model.Parts{
			model.ReasoningPart{Reasoning: "hidden"},
			model.TextPart{Text: "Checking."},
			model.ToolInvocationPart{ToolCallID: "t1", ToolName: "web_search", State: model.ToolStateResult,
				Args: json.RawMessage(`{"query":"go"}`), Result: json.RawMessage(`{"results":[]}`)},
			model.ToolInvocationPart{ToolCallID: "t2", ToolName: "web_search", State: model.ToolStateCall,
				Args: json.RawMessage(`{}`)},
			model.TextPart{Text: "Nothing found."},
		},
	}
	msgs := ProviderMessages("", []model.Message{model.NewUserMessage("c", "search go"), assistant})

	raw, err := json.Marshal(msgs)
	require.NoError(t, err)
	body := string(raw)

	require.Equal(t, int64(4), gjson.Get(body, "#").Int())
	assert.Equal(t, "user", gjson.Get(body, "0.role").String())
	assert.Equal(t, "assistant", gjson.Get(body, "1.role").String())
	assert.Equal(t, "Checking.", gjson.Get(body, "1.content").String())
	assert.Equal(t, int64(1), gjson.Get(body, "1.tool_calls.#").Int(), "unanswered call dropped")
	assert.Equal(t, "tool", gjson.Get(body, "2.role").String())
	assert.Equal(t, "t1", gjson.Get(body, "2.tool_call_id").String())
	assert.Equal(t, "Nothing found.", gjson.Get(body, "3.content").String())
	assert.False(t, strings.Contains(body, "hidden"), "reasoning is not replayed")
}

func TestFold(t *testing.T) {
	acc := model.NewAccumulator("c1")
	events := []Event{
		ReasoningDelta{Text: "a"},
		ReasoningDelta{Text: "b"},
		TextDelta{Text: "Hi"},
		ToolCall{ID: "t", Name: "web_search", Args: json.RawMessage(`{}`)},
		ToolResult{ID: "t", Result: json.RawMessage(`[]`)},
		TextDelta{Text: "Done"},
		Finish{Reason: "stop"},
	}
	for _, ev := range events {
		require.NoError(t, Fold(acc, ev))
	}
	msg := acc.Message()
	require.Len(t, msg.Parts, 4)
	assert.Equal(t, "ab", msg.Parts[0].(model.ReasoningPart).Reasoning)
	assert.Equal(t, model.ToolStateResult, msg.Parts[2].(model.ToolInvocationPart).State)

	assert.Error(t, Fold(acc, ToolResult{ID: "unknown"}))
}

func TestScripted(t *testing.T) {
	s := &Scripted{Events: []Event{TextDelta{Text: "x"}, Finish{Reason: "stop"}}}
	ch, err := s.Stream(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.Len(t, collect(t, ch), 2)
	assert.Equal(t, "m", s.Requests()[0].Model)

	ctx, cancel := context.WithCancel(context.Background())
	gated := &Scripted{Events: []Event{TextDelta{Text: "x"}}, Gate: make(chan struct{})}
	ch, err = gated.Stream(ctx, Request{})
	require.NoError(t, err)
	cancel()
	assert.Empty(t, collect(t, ch))
}

func TestFailureUnwrap(t *testing.T) {
	base := errors.New("eof")
	var err error = Failure{Err: base}
	assert.True(t, errors.Is(err, base))
}
