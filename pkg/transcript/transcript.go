// Package transcript records the user-visible fragments of an agent run and
// renders them into the final response text.
package transcript

import (
	"encoding/json"
	"strings"
	"sync"
)

// Kind classifies a fragment.
type Kind string

const (
	ToolCall    Kind = "tool_call"
	Reasoning   Kind = "reasoning"
	FinalAnswer Kind = "final_answer"
)

// Fragment is one recorded piece of a run.
type Fragment struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Separator joins rendered fragments.
const Separator = "\n\n"

// Transcript is an append-only fragment list. It is frozen by Freeze, after
// which Add is a no-op. A Transcript is safe for concurrent use so that
// observers may read it while a run is still appending.
type Transcript struct {
	mu        sync.Mutex
	fragments []Fragment
	frozen    bool
}

// New returns an empty Transcript.
func New() *Transcript {
	return &Transcript{}
}

// Add appends a fragment. It reports false when the transcript is frozen.
func (t *Transcript) Add(kind Kind, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return false
	}

	t.fragments = append(t.fragments, Fragment{Kind: kind, Text: text})

	return true
}

// Freeze stops further appends.
func (t *Transcript) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frozen = true
}

// Fragments returns a copy of the recorded fragments in order.
func (t *Transcript) Fragments() []Fragment {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Fragment, len(t.fragments))
	copy(out, t.fragments)

	return out
}

// Len returns the number of recorded fragments.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.fragments)
}

// Render returns the response text for the transcript. See Render.
func (t *Transcript) Render() string {
	return Render(t.Fragments())
}

// Render places every tool_call fragment first and every other fragment
// after, each group in observed order, joins them with Separator and trims
// surrounding whitespace.
func Render(fragments []Fragment) string {
	calls := make([]string, 0, len(fragments))
	others := make([]string, 0, len(fragments))

	for _, f := range fragments {
		if f.Kind == ToolCall {
			calls = append(calls, f.Text)
		} else {
			others = append(others, f.Text)
		}
	}

	return strings.TrimSpace(strings.Join(append(calls, others...), Separator))
}

// FormatToolCall renders a tool invocation the way Granite models write
// them inline: <tool_call>{"name":...,"arguments":...}. Arguments that are
// not valid JSON are embedded as a string.
func FormatToolCall(name, arguments string) string {
	var args json.RawMessage
	switch {
	case strings.TrimSpace(arguments) == "":
		args = json.RawMessage(`{}`)
	case json.Valid([]byte(arguments)):
		args = json.RawMessage(arguments)
	default:
		quoted, _ := json.Marshal(arguments)
		args = quoted
	}

	b, _ := json.Marshal(struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{name, args})

	return "<tool_call>" + string(b)
}
