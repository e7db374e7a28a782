// Package chats provides the conversation data model shared by the model
// client, the tool registry and the agent loop.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/agentic/pkg/chats/role] — conversation roles (system, user, assistant, tool)
//   - [github.com/germanamz/agentic/pkg/chats/content] — content parts (text, reasoning, tool call/result)
//   - [github.com/germanamz/agentic/pkg/chats/message] — messages composed of a role and content parts
//   - [github.com/germanamz/agentic/pkg/chats/chat] — append-only conversation state for one run
//
// No provider or transport code lives here.
package chats
