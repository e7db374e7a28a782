package transcript

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmpty(t *testing.T) {
	assert.Empty(t, Render(nil))
	assert.Empty(t, New().Render())
}

func TestRenderFinalOnly(t *testing.T) {
	assert.Equal(t, "X", Render([]Fragment{{Kind: FinalAnswer, Text: "X"}}))
}

func TestRenderGroupsToolCallsFirst(t *testing.T) {
	fragments := []Fragment{
		{Kind: Reasoning, Text: "r1"},
		{Kind: ToolCall, Text: "t1"},
		{Kind: Reasoning, Text: "r2"},
		{Kind: ToolCall, Text: "t2"},
		{Kind: FinalAnswer, Text: "done"},
	}

	assert.Equal(t, "t1\n\nt2\n\nr1\n\nr2\n\ndone", Render(fragments))
}

func TestRenderTrimsWhitespace(t *testing.T) {
	fragments := []Fragment{
		{Kind: ToolCall, Text: "  t1"},
		{Kind: FinalAnswer, Text: "answer \n"},
	}

	assert.Equal(t, "t1\n\nanswer", Render(fragments))
}

func TestRenderEmptyFinalAnswer(t *testing.T) {
	fragments := []Fragment{
		{Kind: ToolCall, Text: "t1"},
		{Kind: FinalAnswer, Text: ""},
	}

	assert.Equal(t, "t1", Render(fragments))
}

func TestFreeze(t *testing.T) {
	tr := New()
	assert.True(t, tr.Add(ToolCall, "a"))

	tr.Freeze()
	assert.False(t, tr.Add(FinalAnswer, "b"))
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, "a", tr.Render())
}

func TestFragmentsReturnsCopy(t *testing.T) {
	tr := New()
	tr.Add(Reasoning, "a")

	fs := tr.Fragments()
	fs[0].Text = "mutated"

	assert.Equal(t, "a", tr.Fragments()[0].Text)
}

func TestConcurrentReadsDuringAppend(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for range 100 {
			tr.Add(ToolCall, "t")
		}
	}()

	go func() {
		defer wg.Done()
		for range 100 {
			_ = tr.Render()
		}
	}()

	wg.Wait()
	assert.Equal(t, 100, tr.Len())
}

func TestFormatToolCall(t *testing.T) {
	assert.Equal(t,
		`<tool_call>{"name":"get_stock_price","arguments":{"ticker":"AAPL"}}`,
		FormatToolCall("get_stock_price", `{"ticker":"AAPL"}`),
	)
	assert.Equal(t,
		`<tool_call>{"name":"python_repl","arguments":{}}`,
		FormatToolCall("python_repl", ""),
	)
	assert.Equal(t,
		`<tool_call>{"name":"python_repl","arguments":"print(1"}`,
		FormatToolCall("python_repl", "print(1"),
	)
}
