// Package defaults provides a plug-and-play default toolbox builder. It
// composes the built-in tools and any extra toolboxes (e.g. tools imported
// from MCP servers) into the single registry the agent receives.
package defaults

import (
	"github.com/germanamz/agentic/pkg/toolkit/repl"
	"github.com/germanamz/agentic/pkg/toolkit/search"
	"github.com/germanamz/agentic/pkg/toolkit/stock"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
)

// Builtins selects and configures the built-in tools.
type Builtins struct {
	Search     bool
	REPL       bool
	Stock      bool
	SearchOpts search.Options
	REPLOpts   repl.Options
	StockOpts  stock.Options
}

// Toolboxes returns one toolbox per enabled built-in, in the fixed order
// duckduckgo_search, python_repl, get_stock_price.
func (b Builtins) Toolboxes() []*toolbox.ToolBox {
	var tbs []*toolbox.ToolBox

	if b.Search {
		tbs = append(tbs, search.New(b.SearchOpts).Tools())
	}
	if b.REPL {
		tbs = append(tbs, repl.New(b.REPLOpts).Tools())
	}
	if b.Stock {
		tbs = append(tbs, stock.New(b.StockOpts).Tools())
	}

	return tbs
}

// New builds a default toolbox by merging the given toolboxes together. Each
// toolbox is merged in order so later entries overwrite earlier ones when tool
// names collide.
func New(toolboxes ...*toolbox.ToolBox) *toolbox.ToolBox {
	tb := toolbox.New()
	for _, other := range toolboxes {
		tb.Merge(other)
	}

	return tb
}
