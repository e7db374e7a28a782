// Package modeladapter defines the interface and types for LLM completion adapters.
//
// It contains:
//   - [Completer] interface and embeddable [ModelAdapter] base struct with HTTP helpers, auth, custom headers and [Sampling]
//   - [Client] and the [Action] variants ([ToolRequest], [FinalAnswer], [Reasoning]) the agent loop consumes
//   - [Classify] and [AsClient], which turn any Completer's raw reply into an Action
//   - [github.com/germanamz/agentic/pkg/modeladapter/usage] — token counts and the per-run tracker
//
// Every transport or protocol failure is reported wrapped in
// [ErrUpstreamUnavailable]. This package contains no provider-specific code;
// concrete adapters live in separate packages that import modeladapter.
package modeladapter
