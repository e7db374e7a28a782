package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/agentic/pkg/chats/content"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownTool is returned by Invoke when the requested tool is not registered.
var ErrUnknownTool = errors.New("toolbox: unknown tool")

type entry struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// ToolBox is an ordered registry of tools. Registration order is preserved
// by Tools, List and Names so the model and introspection endpoints always
// see the same sequence.
//
// A ToolBox is populated once at startup and then only read; it is safe for
// concurrent Invoke calls as long as no goroutine registers at the same time.
type ToolBox struct {
	order []string
	tools map[string]entry
}

// New creates a new ToolBox ready for use.
func New() *ToolBox {
	return &ToolBox{
		tools: make(map[string]entry),
	}
}

// Register adds one or more tools. A tool whose name is already registered
// replaces the old one in place, keeping its position.
//
// The input schema is compiled once here. A schema that cannot be compiled
// disables validation for that tool instead of rejecting it, since MCP
// servers may advertise dialects the validator does not understand.
func (tb *ToolBox) Register(tools ...Tool) {
	for _, t := range tools {
		e := entry{tool: t}
		if len(t.InputSchema) > 0 {
			if s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(t.InputSchema)); err == nil {
				e.schema = s
			}
		}

		if _, exists := tb.tools[t.Name]; !exists {
			tb.order = append(tb.order, t.Name)
		}
		tb.tools[t.Name] = e
	}
}

// Get returns a tool by name and a boolean indicating whether it was found.
func (tb *ToolBox) Get(name string) (Tool, bool) {
	e, ok := tb.tools[name]
	return e.tool, ok
}

// Len returns the number of registered tools.
func (tb *ToolBox) Len() int { return len(tb.order) }

// Merge registers all tools from other, in other's order.
func (tb *ToolBox) Merge(other *ToolBox) {
	for _, name := range other.order {
		tb.Register(other.tools[name].tool)
	}
}

// Tools returns all registered tools in registration order.
func (tb *ToolBox) Tools() []Tool {
	result := make([]Tool, 0, len(tb.order))
	for _, name := range tb.order {
		result = append(result, tb.tools[name].tool)
	}
	return result
}

// List returns the name and description of every tool in registration order.
func (tb *ToolBox) List() []Entry {
	result := make([]Entry, 0, len(tb.order))
	for _, name := range tb.order {
		t := tb.tools[name].tool
		result = append(result, Entry{Name: t.Name, Description: t.Description})
	}
	return result
}

// Names returns the registered tool names in registration order.
func (tb *ToolBox) Names() []string {
	names := make([]string, len(tb.order))
	copy(names, tb.order)
	return names
}

// Call executes a tool call and returns its ToolResult. Failures of any kind
// are reported through ToolResult.IsError.
func (tb *ToolBox) Call(ctx context.Context, tc content.ToolCall) content.ToolResult {
	result, _ := tb.Invoke(ctx, tc)
	return result
}

// Invoke executes a tool call. It always returns a ToolResult; the error is
// non-nil only for ErrUnknownTool, so callers can tell a model mistake from
// a tool failure. Invalid input, handler errors, panics and context expiry
// all produce a ToolResult with IsError set and a nil error.
//
// The handler runs on its own goroutine. If ctx ends first Invoke returns
// immediately; the handler keeps running until it notices its context.
func (tb *ToolBox) Invoke(ctx context.Context, tc content.ToolCall) (content.ToolResult, error) {
	e, ok := tb.tools[tc.Name]
	if !ok {
		return failed(tc, fmt.Sprintf("unknown tool: %s (available: %s)", tc.Name, strings.Join(tb.order, ", "))),
			fmt.Errorf("%w: %q", ErrUnknownTool, tc.Name)
	}

	input := json.RawMessage(tc.Arguments)
	if len(strings.TrimSpace(tc.Arguments)) == 0 {
		input = json.RawMessage(`{}`)
	}

	if !json.Valid(input) {
		return failed(tc, fmt.Sprintf("%s: arguments are not valid JSON: %s", tc.Name, tc.Arguments)), nil
	}

	if e.schema != nil {
		if msg := validate(e.schema, input); msg != "" {
			return failed(tc, fmt.Sprintf("%s: invalid arguments: %s", tc.Name, msg)), nil
		}
	}

	if e.tool.Handler == nil {
		return failed(tc, fmt.Sprintf("%s: tool has no handler", tc.Name)), nil
	}

	type outcome struct {
		text string
		err  error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()

		text, err := e.tool.Handler(ctx, input)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return failed(tc, out.err.Error()), nil
		}
		return content.ToolResult{ToolCallID: tc.ID, Content: out.text}, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed(tc, fmt.Sprintf("tool %s timed out", tc.Name)), nil
		}
		return failed(tc, fmt.Sprintf("tool %s cancelled: %v", tc.Name, ctx.Err())), nil
	}
}

func failed(tc content.ToolCall, text string) content.ToolResult {
	return content.ToolResult{
		ToolCallID: tc.ID,
		Content:    text,
		IsError:    true,
	}
}

// validate returns a human-readable list of schema violations, or "".
func validate(schema *gojsonschema.Schema, input json.RawMessage) string {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		return err.Error()
	}

	if res.Valid() {
		return ""
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}

	return strings.Join(msgs, "; ")
}
