// Package message defines the Message type stored in a conversation.
package message

import (
	"strings"

	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/germanamz/agentic/pkg/chats/role"
)

// Message is a single conversation entry. It is a value type that copies
// cheaply; Parts and Metadata are shared between copies.
type Message struct {
	Role     role.Role
	Parts    []content.Part
	Metadata map[string]any
}

// New creates a message with the given role and content parts.
func New(r role.Role, parts ...content.Part) Message {
	return Message{Role: r, Parts: parts}
}

// NewText creates a message with a single Text part.
func NewText(r role.Role, text string) Message {
	return New(r, content.Text{Text: text})
}

// NewToolResult creates the tool message that answers a ToolCall.
func NewToolResult(tr content.ToolResult) Message {
	return New(role.Tool, tr)
}

// TextContent concatenates the text of all Text parts.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ReasoningContent concatenates the text of all Reasoning parts.
func (m Message) ReasoningContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if r, ok := p.(content.Reasoning); ok {
			b.WriteString(r.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the ToolCall parts in order.
func (m Message) ToolCalls() []content.ToolCall {
	var calls []content.ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(content.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns the ToolResult parts in order.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// SetMeta sets a metadata value, allocating the map on first use.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMeta retrieves a metadata value by key.
func (m Message) GetMeta(key string) (any, bool) {
	if m.Metadata == nil {
		return nil, false
	}
	v, ok := m.Metadata[key]
	return v, ok
}
