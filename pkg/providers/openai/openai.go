// Package openai provides a Completer implementation for OpenAI-compatible
// Chat Completions servers.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/agentic/pkg/chats/chat"
	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/germanamz/agentic/pkg/chats/message"
	"github.com/germanamz/agentic/pkg/chats/role"
	"github.com/germanamz/agentic/pkg/modeladapter"
	"github.com/germanamz/agentic/pkg/modeladapter/usage"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const completionsPath = "/v1/chat/completions"

// inlineToolCallTag marks tool calls that Granite-family models sometimes
// write into the text body instead of the structured tool_calls field.
const inlineToolCallTag = "<tool_call>"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for OpenAI-compatible servers.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter with the default sampling parameters.
// baseURL is the server root, e.g. "http://vllm:8000"; a trailing "/v1" or
// slash is accepted and stripped.
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{ModelAdapter: modeladapter.New(NormalizeBaseURL(baseURL), modeladapter.Auth{Key: apiKey}, nil)}
	a.Name = model
	a.Sampling = modeladapter.DefaultSampling()

	return a
}

// NormalizeBaseURL strips trailing slashes and a trailing "/v1" segment.
func NormalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/v1")
	return strings.TrimRight(u, "/")
}

// Complete sends a conversation to the Chat Completions endpoint and returns
// the assistant's reply. The reply carries the finish reason under
// modeladapter.FinishReasonKey and the token usage under usage.MetaKey.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	req := a.buildRequest(c, tools)

	var resp apiResponse
	if err := a.PostJSON(ctx, completionsPath, req, &resp); err != nil {
		return message.Message{}, fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return message.Message{}, fmt.Errorf("openai: %w: empty choices in response", modeladapter.ErrUpstreamUnavailable)
	}

	msg := parseChoice(resp.Choices[0])
	usage.Attach(&msg, usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	return msg, nil
}

// --- request types ---

type apiRequest struct {
	Model           string       `json:"model"`
	Messages        []apiMessage `json:"messages"`
	MaxTokens       int          `json:"max_tokens,omitempty"`
	Temperature     float64      `json:"temperature"`
	TopP            float64      `json:"top_p,omitempty"`
	PresencePenalty float64      `json:"presence_penalty,omitempty"`
	Tools           []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role             string        `json:"role"`
	Content          *string       `json:"content"`
	ReasoningContent *string       `json:"reasoning_content"`
	ToolCalls        []apiToolCall `json:"tool_calls,omitempty"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Tool) apiRequest {
	req := apiRequest{
		Model:           a.Name,
		MaxTokens:       a.Sampling.MaxTokens,
		Temperature:     a.Sampling.Temperature,
		TopP:            a.Sampling.TopP,
		PresencePenalty: a.Sampling.PresencePenalty,
	}

	if len(tools) > 0 {
		req.Tools = make([]apiToolDef, len(tools))
		for i, t := range tools {
			schema := t.InputSchema
			if schema == nil {
				schema = json.RawMessage(`{"type":"object"}`)
			}
			req.Tools[i] = apiToolDef{
				Type: "function",
				Function: apiToolDefFunc{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  schema,
				},
			}
		}
	}

	for _, m := range c.Messages() {
		appendMessages(&req.Messages, m)
	}

	return req
}

// appendMessages converts m to wire messages. Reasoning parts are never sent
// back to the server.
func appendMessages(msgs *[]apiMessage, m message.Message) {
	switch m.Role {
	case role.System:
		text := m.TextContent()
		*msgs = append(*msgs, apiMessage{Role: "system", Content: &text})

	case role.User:
		text := m.TextContent()
		*msgs = append(*msgs, apiMessage{Role: "user", Content: &text})

	case role.Assistant:
		msg := apiMessage{Role: "assistant"}

		if text := m.TextContent(); text != "" {
			msg.Content = &text
		}

		for _, tc := range m.ToolCalls() {
			msg.ToolCalls = append(msg.ToolCalls, apiToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: apiToolFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		*msgs = append(*msgs, msg)

	case role.Tool:
		for _, tr := range m.ToolResults() {
			text := tr.Content
			*msgs = append(*msgs, apiMessage{
				Role:       "tool",
				Content:    &text,
				ToolCallID: tr.ToolCallID,
			})
		}
	}
}

func parseChoice(choice apiChoice) message.Message {
	var parts []content.Part

	if r := choice.Message.ReasoningContent; r != nil && strings.TrimSpace(*r) != "" {
		parts = append(parts, content.Reasoning{Text: *r})
	}

	text := ""
	if choice.Message.Content != nil {
		text = *choice.Message.Content
	}

	var calls []content.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if len(calls) == 0 {
		text, calls = parseInlineToolCalls(text)
	}

	if text != "" {
		parts = append(parts, content.Text{Text: text})
	}

	for _, tc := range calls {
		if tc.ID == "" {
			tc.ID = newCallID()
		}
		parts = append(parts, tc)
	}

	msg := message.New(role.Assistant, parts...)
	msg.SetMeta(modeladapter.FinishReasonKey, choice.FinishReason)

	return msg
}

// parseInlineToolCalls extracts tool calls written as
// "<tool_call>[{"name": ..., "arguments": {...}}]" in the text body. It
// returns the text preceding the tag and the decoded calls. Text without a
// decodable tag is returned unchanged.
func parseInlineToolCalls(text string) (string, []content.ToolCall) {
	idx := strings.Index(text, inlineToolCallTag)
	if idx < 0 {
		return text, nil
	}

	var raw json.RawMessage
	dec := json.NewDecoder(strings.NewReader(text[idx+len(inlineToolCallTag):]))
	if err := dec.Decode(&raw); err != nil {
		return text, nil
	}

	parsed := gjson.ParseBytes(raw)
	items := []gjson.Result{parsed}
	if parsed.IsArray() {
		items = parsed.Array()
	}

	var calls []content.ToolCall
	for _, item := range items {
		name := item.Get("name").String()
		if name == "" {
			continue
		}

		args := item.Get("arguments")
		argText := args.Raw
		switch {
		case !args.Exists():
			argText = "{}"
		case args.Type == gjson.String:
			argText = args.String()
		}

		calls = append(calls, content.ToolCall{
			ID:        item.Get("id").String(),
			Name:      name,
			Arguments: argText,
		})
	}

	if len(calls) == 0 {
		return text, nil
	}

	return strings.TrimSpace(text[:idx]), calls
}

func newCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
