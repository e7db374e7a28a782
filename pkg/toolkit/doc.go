// Package toolkit holds the built-in tools the agent can call.
//
//   - [github.com/germanamz/agentic/pkg/toolkit/search] — duckduckgo_search, web search through the DuckDuckGo HTML endpoint
//   - [github.com/germanamz/agentic/pkg/toolkit/repl] — python_repl, runs Python code in a local interpreter (unsandboxed)
//   - [github.com/germanamz/agentic/pkg/toolkit/stock] — get_stock_price, latest close from the Yahoo Finance chart API
//   - [github.com/germanamz/agentic/pkg/toolkit/defaults] — composes the enabled tools into one registry
//
// Each sub-package exposes a Tools method returning a ToolBox so the
// defaults package can merge them in a fixed order.
package toolkit
