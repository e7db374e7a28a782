package modeladapter

import (
	"context"
	"strings"

	"github.com/germanamz/agentic/pkg/chats/chat"
	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/germanamz/agentic/pkg/chats/message"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
)

// FinishReasonKey is the message metadata key under which adapters record
// the provider's finish reason (e.g. "stop", "length", "tool_calls").
const FinishReasonKey = "finish_reason"

// FinishLength is the finish reason reported when the reply was cut off by
// the token limit.
const FinishLength = "length"

// Action is the classified outcome of one model call. It is one of
// ToolRequest, FinalAnswer or Reasoning.
type Action interface {
	// Message returns the raw assistant reply the action was derived from.
	Message() message.Message
	isAction()
}

// ToolRequest asks the orchestrator to run one or more tools, in order.
// Thought holds any text the model produced alongside the calls.
type ToolRequest struct {
	Reply   message.Message
	Calls   []content.ToolCall
	Thought string
}

// FinalAnswer ends the run with Text as the answer.
type FinalAnswer struct {
	Reply message.Message
	Text  string
}

// Reasoning is intermediate thinking that neither calls a tool nor answers.
type Reasoning struct {
	Reply message.Message
	Text  string
}

func (a ToolRequest) Message() message.Message { return a.Reply }
func (a FinalAnswer) Message() message.Message { return a.Reply }
func (a Reasoning) Message() message.Message   { return a.Reply }

func (ToolRequest) isAction() {}
func (FinalAnswer) isAction() {}
func (Reasoning) isAction()   {}

// Client produces the next Action for a conversation.
type Client interface {
	Next(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Action, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Action, error)

// Next calls f.
func (f ClientFunc) Next(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Action, error) {
	return f(ctx, c, tools)
}

// AsClient wraps a Completer so its replies are classified into Actions.
// A Completer that already implements Client is returned unchanged.
func AsClient(c Completer) Client {
	if cl, ok := c.(Client); ok {
		return cl
	}
	return completerClient{c}
}

type completerClient struct {
	c Completer
}

func (cc completerClient) Next(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (Action, error) {
	reply, err := cc.c.Complete(ctx, c, tools)
	if err != nil {
		return nil, err
	}
	return Classify(reply, FinishReason(reply)), nil
}

// FinishReason returns the finish reason an adapter recorded on reply, or "".
func FinishReason(reply message.Message) string {
	v, ok := reply.GetMeta(FinishReasonKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Classify maps a raw assistant reply to an Action:
//
//   - any tool call makes it a ToolRequest;
//   - a reply cut off by the token limit, or one carrying only reasoning
//     content, is Reasoning;
//   - everything else is a FinalAnswer, possibly with empty text.
func Classify(reply message.Message, finishReason string) Action {
	text := strings.TrimSpace(reply.TextContent())

	if calls := reply.ToolCalls(); len(calls) > 0 {
		return ToolRequest{Reply: reply, Calls: calls, Thought: text}
	}

	if finishReason == FinishLength {
		if text == "" {
			text = strings.TrimSpace(reply.ReasoningContent())
		}
		return Reasoning{Reply: reply, Text: text}
	}

	if text == "" {
		if thinking := strings.TrimSpace(reply.ReasoningContent()); thinking != "" {
			return Reasoning{Reply: reply, Text: thinking}
		}
	}

	return FinalAnswer{Reply: reply, Text: text}
}
