// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/tools"
)

// ErrNoAPIKey is returned when the provider has no API key configured.
var ErrNoAPIKey = errors.New("provider api key is not configured")

// =============================================================================
// OPENAI-COMPATIBLE TRANSPORT
// =============================================================================

// OpenAITransport streams from an OpenAI-compatible chat completions endpoint.
// Reasoning is read from the non-standard reasoning_content delta field.
// Tool calls are executed locally and their results sent back, for at most
// MaxSteps rounds per response.
type OpenAITransport struct {
	client openai.Client
	cfg    config.ProviderConfig
	tools  *tools.Registry
	log    *logger.Logger
}

// NewOpenAITransport creates a transport. reg may be nil to disable tools.
func NewOpenAITransport(cfg config.ProviderConfig, reg *tools.Registry, log *logger.Logger, opts ...option.RequestOption) *OpenAITransport {
	if log == nil {
		log = logger.Nop()
	}
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if !cfg.Tools {
		reg = nil
	}
	return &OpenAITransport{
		client: openai.NewClient(append(base, opts...)...),
		cfg:    cfg,
		tools:  reg,
		log:    log.With("component", "stream"),
	}
}

// Stream implements Transport.
func (t *OpenAITransport) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	if t.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	ch := make(chan Event, 32)
	go t.run(ctx, req, ch)
	return ch, nil
}

// pendingCall is a tool call being assembled from deltas.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

func (t *OpenAITransport) upstreamModel(id string) string {
	if t.cfg.UpstreamModel != "" {
		return t.cfg.UpstreamModel
	}
	return id
}

func (t *OpenAITransport) run(ctx context.Context, req Request, ch chan<- Event) {
	defer close(ch)

	system := req.System
	if system == "" {
		system = t.cfg.SystemPrompt
	}
	msgs := ProviderMessages(system, req.Messages)
	maxSteps := t.cfg.MaxSteps
	if maxSteps < 0 {
		maxSteps = 0
	}

	for step := 0; ; step++ {
		params := openai.ChatCompletionNewParams{
			Model:    t.upstreamModel(req.Model),
			Messages: msgs,
		}
		if t.tools != nil && step < maxSteps {
			params.Tools = ToolParams(t.tools)
		}

		calls, text, finish, err := t.round(ctx, params, ch)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.log.Warn("stream failed", "model", req.Model, "step", step, "error", err)
			send(ctx, ch, Failure{Err: err})
			return
		}
		if len(calls) == 0 {
			if finish == "" {
				finish = "stop"
			}
			send(ctx, ch, Finish{Reason: finish})
			return
		}
		if t.tools == nil || step >= maxSteps {
			send(ctx, ch, Finish{Reason: "max_steps"})
			return
		}

		assistant := openai.ChatCompletionAssistantMessageParam{}
		if text != "" {
			assistant.Content.OfString = openai.String(text)
		}
		for _, c := range calls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: c.id,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      c.name,
					Arguments: c.args.String(),
				},
			})
		}
		msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		for _, c := range calls {
			args := json.RawMessage(c.args.String())
			if !send(ctx, ch, ToolCall{ID: c.id, Name: c.name, Args: args}) {
				return
			}
			result, err := t.tools.Run(ctx, c.name, args)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				result = tools.ErrorPayload(err)
			}
			t.log.Debug("tool executed", "tool", c.name, "tool_call_id", c.id)
			if !send(ctx, ch, ToolResult{ID: c.id, Result: result}) {
				return
			}
			msgs = append(msgs, openai.ToolMessage(string(result), c.id))
		}
	}
}

// round streams one completion, forwarding text and reasoning deltas, and
// returns the tool calls the model made in index order.
func (t *OpenAITransport) round(ctx context.Context, params openai.ChatCompletionNewParams, ch chan<- Event) ([]*pendingCall, string, string, error) {
	s := t.client.Chat.Completions.NewStreaming(ctx, params)
	defer s.Close()

	pending := map[int64]*pendingCall{}
	var text strings.Builder
	finish := ""

	for s.Next() {
		chunk := s.Current()
		for _, choice := range chunk.Choices {
			delta := choice.Delta
			if r := gjson.Get(delta.RawJSON(), "reasoning_content"); r.Type == gjson.String && r.Str != "" {
				if !send(ctx, ch, ReasoningDelta{Text: r.Str}) {
					return nil, "", "", ctx.Err()
				}
			}
			if delta.Content != "" {
				text.WriteString(delta.Content)
				if !send(ctx, ch, TextDelta{Text: delta.Content}) {
					return nil, "", "", ctx.Err()
				}
			}
			for _, tc := range delta.ToolCalls {
				p, ok := pending[tc.Index]
				if !ok {
					p = &pendingCall{}
					pending[tc.Index] = p
				}
				if tc.ID != "" {
					p.id = tc.ID
				}
				if tc.Function.Name != "" {
					p.name = tc.Function.Name
				}
				p.args.WriteString(tc.Function.Arguments)
			}
			if choice.FinishReason != "" {
				finish = choice.FinishReason
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, "", "", err
	}

	indexes := make([]int64, 0, len(pending))
	for i := range pending {
		indexes = append(indexes, i)
	}
	sort.Slice(indexes, func(a, b int) bool { return indexes[a] < indexes[b] })
	calls := make([]*pendingCall, 0, len(indexes))
	for _, i := range indexes {
		p := pending[i]
		if p.name == "" {
			continue
		}
		if p.id == "" {
			p.id = "call_" + model.NewID()
		}
		if strings.TrimSpace(p.args.String()) == "" {
			p.args.WriteString("{}")
		}
		calls = append(calls, p)
	}
	return calls, text.String(), finish, nil
}

// =============================================================================
// REQUEST MAPPING
// =============================================================================

// ToolParams describes every registered tool to the provider.
func ToolParams(reg *tools.Registry) []openai.ChatCompletionToolParam {
	var out []openai.ChatCompletionToolParam
	for _, tool := range reg.All() {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(tool.Schema.JSONSchema()),
			},
		})
	}
	return out
}

// ProviderMessages maps a transcript to chat completion messages. Reasoning
// is not sent back. An assistant message that used tools becomes one
// assistant message per step, each followed by its tool results. Calls that
// never got a result are dropped because providers reject them.
func ProviderMessages(system string, history []model.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, m := range history {
		switch m.Role {
		case model.RoleSystem:
			if text := m.Text(); text != "" {
				out = append(out, openai.SystemMessage(text))
			}
		case model.RoleUser:
			out = append(out, openai.UserMessage(m.Text()))
		case model.RoleAssistant:
			out = append(out, assistantMessages(m)...)
		}
	}
	return out
}

func assistantMessages(m model.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	var text []string
	var calls []model.ToolInvocationPart

	flush := func() {
		if len(text) == 0 && len(calls) == 0 {
			return
		}
		msg := openai.ChatCompletionAssistantMessageParam{}
		if len(text) > 0 {
			msg.Content.OfString = openai.String(strings.Join(text, "\n\n"))
		}
		for _, c := range calls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: c.ToolCallID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      c.ToolName,
					Arguments: string(c.Args),
				},
			})
		}
		out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		for _, c := range calls {
			out = append(out, openai.ToolMessage(string(c.Result), c.ToolCallID))
		}
		text, calls = nil, nil
	}

	for _, p := range m.Parts {
		switch p := p.(type) {
		case model.TextPart:
			if len(calls) > 0 {
				flush()
			}
			if p.Text != "" {
				text = append(text, p.Text)
			}
		case model.ToolInvocationPart:
			if p.HasResult() {
				calls = append(calls, p)
			}
		}
	}
	flush()
	return out
}
