// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdeck/internal/model"
)

func newRenderer() *Renderer {
	return New(Options{Width: 80, Style: "notty"})
}

func assistant(id string, parts ...model.Part) model.Message {
	return model.Message{ID: id, ChatID: "c1", Role: model.RoleAssistant, Parts: parts}
}

func user(id, text string) model.Message {
	return model.Message{ID: id, ChatID: "c1", Role: model.RoleUser, Parts: model.Parts{model.TextPart{Text: text}}}
}

// =============================================================================
// TOOL STATUS
// =============================================================================

func TestStatusOf(t *testing.T) {
	call := model.ToolInvocationPart{ToolName: "web_search", State: model.ToolStateCall}
	result := model.ToolInvocationPart{ToolName: "web_search", State: model.ToolStateResult, Result: json.RawMessage(`1`)}

	tests := []struct {
		name   string
		part   model.ToolInvocationPart
		latest bool
		status model.Status
		want   ToolStatus
	}{
		{"call latest streaming", call, true, model.StatusStreaming, ToolRunning},
		{"call latest submitted", call, true, model.StatusSubmitted, ToolRunning},
		{"call latest ready", call, true, model.StatusReady, ToolWaiting},
		{"call older streaming", call, false, model.StatusStreaming, ToolWaiting},
		{"result latest streaming", result, true, model.StatusStreaming, ToolCompleted},
		{"result older ready", result, false, model.StatusReady, ToolCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.part, tt.latest, tt.status))
		})
	}
	assert.Equal(t, "Running", ToolRunning.String())
	assert.Equal(t, "Waiting", ToolWaiting.String())
	assert.Equal(t, "Completed", ToolCompleted.String())
}

// =============================================================================
// PAYLOADS
// =============================================================================

func TestFormatPayload(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		want       string
		structured bool
	}{
		{"object", `{"a":1,"b":[true]}`, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}", true},
		{"array", `[1,2]`, "[\n  1,\n  2\n]", true},
		{"number", `42`, "42", true},
		{"json string", `"plain output"`, "plain output", false},
		{"not json", `error: boom {`, `error: boom {`, false},
		{"empty", ``, ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, structured := FormatPayload([]byte(tt.in))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.structured, structured)
		})
	}
}

func TestHighlightJSON(t *testing.T) {
	out := highlightJSON("{\n  \"a\": 1\n}")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "1")
}

// =============================================================================
// REASONING DISCLOSURE
// =============================================================================

func TestReasoning_AutoExpandsWhileLiveTail(t *testing.T) {
	r := newRenderer()
	reasoning := model.ReasoningPart{Reasoning: "weighing options"}
	msgs := []model.Message{user("u1", "hi"), assistant("a1", reasoning)}
	key := PartKey{MessageID: "a1", Index: 0}

	out := r.Render(msgs, model.StatusStreaming, false)
	d, ok := r.Disclosure(key)
	require.True(t, ok)
	assert.True(t, d.Open())
	assert.Contains(t, out, "Thinking...")
	assert.Contains(t, out, "weighing options")

	// text arrives after the reasoning: no longer the last part
	msgs[1] = assistant("a1", reasoning, model.TextPart{Text: "Answer"})
	out = r.Render(msgs, model.StatusStreaming, false)
	assert.False(t, d.Open())
	assert.Contains(t, out, "Reasoning")
	assert.NotContains(t, out, "weighing options")
}

func TestReasoning_CollapsesWhenReady(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{assistant("a1", model.ReasoningPart{Reasoning: "step one"})}
	key := PartKey{MessageID: "a1", Index: 0}

	r.Render(msgs, model.StatusStreaming, false)
	d, _ := r.Disclosure(key)
	assert.True(t, d.Open())

	out := r.Render(msgs, model.StatusReady, false)
	assert.False(t, d.Open())
	assert.NotContains(t, out, "step one")
}

func TestReasoning_NotLastMessage(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{
		assistant("a1", model.ReasoningPart{Reasoning: "old thoughts"}),
		user("u2", "next"),
	}
	out := r.Render(msgs, model.StatusStreaming, false)
	d, _ := r.Disclosure(PartKey{MessageID: "a1", Index: 0})
	assert.False(t, d.Open())
	assert.NotContains(t, out, "old thoughts")
}

func TestReasoning_ManualToggleHoldsUntilTransition(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{assistant("a1", model.ReasoningPart{Reasoning: "details here"})}
	key := PartKey{MessageID: "a1", Index: 0}

	assert.False(t, r.Toggle(key), "unknown before first render")
	r.Render(msgs, model.StatusReady, false)
	require.True(t, r.Toggle(key))

	out := r.Render(msgs, model.StatusReady, false)
	assert.Contains(t, out, "details here")
	out = r.Render(msgs, model.StatusError, false)
	assert.Contains(t, out, "details here", "no liveness change keeps the manual state")
}

func TestReasoningText_Redacted(t *testing.T) {
	p := model.ReasoningPart{
		Reasoning: "a",
		Details: []model.ReasoningDetail{
			{Type: "text", Text: "first "},
			{Type: "redacted", Data: "opaque"},
			{Type: "text", Text: " last"},
		},
	}
	assert.Equal(t, "first <redacted> last", ReasoningText(p))
	assert.Equal(t, "plain", ReasoningText(model.ReasoningPart{Reasoning: "plain"}))
}

// =============================================================================
// TOOL INVOCATIONS
// =============================================================================

func TestToolInvocation_Rendering(t *testing.T) {
	r := newRenderer()
	call := model.ToolInvocationPart{
		ToolCallID: "t1",
		ToolName:   "web_search",
		State:      model.ToolStateCall,
		Args:       json.RawMessage(`{"query":"golang"}`),
	}
	msgs := []model.Message{user("u1", "search"), assistant("a1", call)}
	key := PartKey{MessageID: "a1", Index: 0}

	out := r.Render(msgs, model.StatusStreaming, false)
	assert.Contains(t, out, "web_search")
	assert.Contains(t, out, "Running")
	assert.NotContains(t, out, "Arguments", "collapsed by default")

	out = r.Render(msgs, model.StatusReady, false)
	assert.Contains(t, out, "Waiting")

	require.True(t, r.Toggle(key))
	done := call
	done.State = model.ToolStateResult
	done.Result = json.RawMessage(`{"results":[]}`)
	msgs[1] = assistant("a1", done)

	out = r.Render(msgs, model.StatusReady, false)
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "Arguments")
	assert.Contains(t, out, `"query": "golang"`)
	assert.Contains(t, out, "Result")
	assert.Contains(t, out, `"results": []`)
}

func TestToolInvocation_EmptyResultStillShown(t *testing.T) {
	r := newRenderer()
	part := model.ToolInvocationPart{ToolCallID: "t1", ToolName: "current_time", State: model.ToolStateResult, Result: json.RawMessage(`""`)}
	msgs := []model.Message{assistant("a1", part)}
	r.Render(msgs, model.StatusReady, false)
	r.Toggle(PartKey{MessageID: "a1", Index: 0})

	out := r.Render(msgs, model.StatusReady, false)
	assert.Contains(t, out, "Result")
	assert.Contains(t, out, "(empty)")
}

func TestToolInvocation_VerbatimResult(t *testing.T) {
	r := newRenderer()
	part := model.ToolInvocationPart{ToolCallID: "t1", ToolName: "x", State: model.ToolStateResult, Result: json.RawMessage(`not json at all`)}
	msgs := []model.Message{assistant("a1", part)}
	r.Render(msgs, model.StatusReady, false)
	r.Toggle(PartKey{MessageID: "a1", Index: 0})
	assert.Contains(t, r.Render(msgs, model.StatusReady, false), "not json at all")
}

// =============================================================================
// TEXT AND ORDER
// =============================================================================

func TestText_PartsInOrder(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{
		user("u1", "question"),
		assistant("a1", model.TextPart{Text: "alpha"}, model.TextPart{Text: "omega"}),
	}
	out := r.Render(msgs, model.StatusReady, false)
	iq := strings.Index(out, "question")
	ia := strings.Index(out, "alpha")
	io := strings.Index(out, "omega")
	require.True(t, iq >= 0 && ia >= 0 && io >= 0, out)
	assert.Less(t, iq, ia)
	assert.Less(t, ia, io)
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Assistant")
}

func TestText_PartialMarkdownDoesNotFail(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{assistant("a1", model.TextPart{Text: "```go\nfunc main() {"})}
	out := r.Render(msgs, model.StatusStreaming, false)
	assert.Contains(t, out, "func main()")
}

// =============================================================================
// MEMOIZATION
// =============================================================================

func TestMemo_DeepEqualPartsHit(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{user("u1", "hi"), assistant("a1", model.TextPart{Text: "hello"})}

	first := r.Render(msgs, model.StatusReady, false)
	assert.Equal(t, Stats{Misses: 2}, r.Stats())

	// fresh copies with equal content still hit
	copies := []model.Message{msgs[0].Clone(), msgs[1].Clone()}
	second := r.Render(copies, model.StatusReady, false)
	assert.Equal(t, first, second)
	assert.Equal(t, Stats{Hits: 2, Misses: 2}, r.Stats())
}

func TestMemo_StreamingAppendMissesOnlyChangedMessage(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{user("u1", "hi"), assistant("a1", model.TextPart{Text: "hel"})}
	r.Render(msgs, model.StatusStreaming, false)

	msgs[1] = assistant("a1", model.TextPart{Text: "hello"})
	r.Render(msgs, model.StatusStreaming, false)
	assert.Equal(t, Stats{Hits: 1, Misses: 3}, r.Stats())
}

func TestMemo_StatusOrLoadingChangeMisses(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{user("u1", "hi")}
	r.Render(msgs, model.StatusReady, false)
	r.Render(msgs, model.StatusSubmitted, false)
	r.Render(msgs, model.StatusSubmitted, true)
	assert.Equal(t, Stats{Misses: 3}, r.Stats())
}

func TestMemo_WidthChangeMisses(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{user("u1", "hi")}
	r.Render(msgs, model.StatusReady, false)
	r.SetWidth(120)
	r.Render(msgs, model.StatusReady, false)
	assert.Equal(t, 120, r.Width())
	assert.Equal(t, Stats{Misses: 2}, r.Stats())
}

func TestRender_PrunesRemovedMessages(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{
		assistant("a1", model.ReasoningPart{Reasoning: "x"}),
		user("u2", "y"),
	}
	r.Render(msgs, model.StatusReady, false)
	_, ok := r.Disclosure(PartKey{MessageID: "a1", Index: 0})
	require.True(t, ok)

	r.Render(msgs[1:], model.StatusReady, false)
	_, ok = r.Disclosure(PartKey{MessageID: "a1", Index: 0})
	assert.False(t, ok)
}

// =============================================================================
// COPY
// =============================================================================

func TestCanCopy(t *testing.T) {
	a := assistant("a1", model.TextPart{Text: "x"})
	u := user("u1", "x")

	assert.False(t, CanCopy(u, false, model.StatusReady))
	assert.True(t, CanCopy(a, true, model.StatusReady))
	assert.True(t, CanCopy(a, true, model.StatusError))
	assert.False(t, CanCopy(a, true, model.StatusStreaming))
	assert.False(t, CanCopy(a, true, model.StatusSubmitted))
	assert.True(t, CanCopy(a, false, model.StatusStreaming))
}

func TestCopy(t *testing.T) {
	var got string
	orig := writeClipboard
	writeClipboard = func(s string) error { got = s; return nil }
	t.Cleanup(func() { writeClipboard = orig })

	msg := assistant("a1",
		model.TextPart{Text: "first"},
		model.ToolInvocationPart{ToolName: "x", State: model.ToolStateCall},
		model.TextPart{Text: "second"},
	)
	require.NoError(t, Copy(msg))
	assert.Equal(t, "first\n\nsecond", got)

	err := Copy(assistant("a2", model.ReasoningPart{Reasoning: "only"}))
	assert.True(t, errors.Is(err, ErrNothingToCopy))
}

func TestLastCopyable(t *testing.T) {
	msgs := []model.Message{
		user("u1", "q1"),
		assistant("a1", model.TextPart{Text: "r1"}),
		user("u2", "q2"),
	}
	got, ok := LastCopyable(msgs, model.StatusSubmitted)
	require.True(t, ok)
	assert.Equal(t, "a1", got.ID)

	msgs = append(msgs, assistant("a2", model.TextPart{Text: "partial"}))
	_, ok = LastCopyable(msgs, model.StatusStreaming)
	assert.False(t, ok)

	got, ok = LastCopyable(msgs, model.StatusReady)
	require.True(t, ok)
	assert.Equal(t, "a2", got.ID)
}

func TestCopyHint(t *testing.T) {
	r := newRenderer()
	msgs := []model.Message{user("u1", "q"), assistant("a1", model.TextPart{Text: "answer"})}
	assert.NotContains(t, r.Render(msgs, model.StatusStreaming, false), "ctrl+y copy")
	assert.Contains(t, r.Render(msgs, model.StatusReady, false), "ctrl+y copy")
}

func TestLastCollapsible(t *testing.T) {
	msgs := []model.Message{
		assistant("a1", model.ReasoningPart{Reasoning: "r"}, model.TextPart{Text: "t"}),
		user("u2", "q"),
	}
	key, ok := LastCollapsible(msgs)
	require.True(t, ok)
	assert.Equal(t, PartKey{MessageID: "a1", Index: 0}, key)

	_, ok = LastCollapsible([]model.Message{user("u1", "q")})
	assert.False(t, ok)
}
