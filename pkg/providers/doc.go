// Package providers groups the concrete model adapters.
//
//   - [github.com/germanamz/agentic/pkg/providers/openai] — OpenAI-compatible Chat Completions servers (vLLM, TGI, Ollama, OpenAI)
//
// Shared plumbing (HTTP helpers, auth, sampling, error wrapping) lives in
// [github.com/germanamz/agentic/pkg/modeladapter].
package providers
