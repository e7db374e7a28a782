// Package content defines the parts a conversation message is made of.
package content

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is plain assistant or user text.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// Reasoning is model thinking returned separately from the answer text by
// servers that split it out (e.g. a "reasoning_content" field).
type Reasoning struct {
	Text string
}

func (r Reasoning) PartKind() string { return "reasoning" }

// ToolCall is the model's request to invoke a registered tool.
// Arguments holds the raw JSON object the model produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult is the outcome of one ToolCall, referenced by its ID.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }

// Succeeded reports whether the tool ran to completion.
func (tr ToolResult) Succeeded() bool { return !tr.IsError }
