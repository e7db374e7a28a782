package message

import (
	"testing"

	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/germanamz/agentic/pkg/chats/role"
	"github.com/stretchr/testify/assert"
)

func TestNewText(t *testing.T) {
	msg := NewText(role.User, "what is AAPL trading at?")

	assert.Equal(t, role.User, msg.Role)
	assert.Len(t, msg.Parts, 1)
	assert.Nil(t, msg.Metadata)
	assert.Equal(t, "what is AAPL trading at?", msg.TextContent())
}

func TestNewToolResult(t *testing.T) {
	msg := NewToolResult(content.ToolResult{ToolCallID: "c1", Content: "42"})

	assert.Equal(t, role.Tool, msg.Role)
	results := msg.ToolResults()
	assert.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ToolCallID)
}

func TestTextContent_SkipsOtherParts(t *testing.T) {
	msg := New(role.Assistant,
		content.Text{Text: "let me "},
		content.Reasoning{Text: "the user wants a price"},
		content.ToolCall{ID: "1", Name: "get_stock_price"},
		content.Text{Text: "check"},
	)

	assert.Equal(t, "let me check", msg.TextContent())
	assert.Equal(t, "the user wants a price", msg.ReasoningContent())
}

func TestToolCalls(t *testing.T) {
	tc1 := content.ToolCall{ID: "1", Name: "duckduckgo_search", Arguments: `{"query":"go"}`}
	tc2 := content.ToolCall{ID: "2", Name: "python_repl", Arguments: `{"code":"print(1)"}`}
	msg := New(role.Assistant, content.Text{Text: "two things"}, tc1, tc2)

	calls := msg.ToolCalls()
	assert.Equal(t, []content.ToolCall{tc1, tc2}, calls)
	assert.Empty(t, NewText(role.User, "hi").ToolCalls())
}

func TestMeta(t *testing.T) {
	msg := NewText(role.Assistant, "hello")

	_, ok := msg.GetMeta("finish_reason")
	assert.False(t, ok)

	msg.SetMeta("finish_reason", "stop")

	v, ok := msg.GetMeta("finish_reason")
	assert.True(t, ok)
	assert.Equal(t, "stop", v)
}
