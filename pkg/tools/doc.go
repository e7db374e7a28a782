// Package tools provides the tool registry and its MCP (Model Context
// Protocol) bridges.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/agentic/pkg/tools/toolbox] — Tool type and the ordered ToolBox registry that validates, bounds and dispatches calls
//   - [github.com/germanamz/agentic/pkg/tools/mcpclient] — imports tools from external MCP servers into a ToolBox
//   - [github.com/germanamz/agentic/pkg/tools/mcpserver] — exposes a ToolBox over MCP (stdio or streamable HTTP)
//
// The toolbox sub-package is the foundation layer. The mcpclient and
// mcpserver packages are thin wrappers around the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
package tools
