package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/germanamz/agentic/pkg/agent"
	"github.com/germanamz/agentic/pkg/agentctx"
	"github.com/germanamz/agentic/pkg/modeladapter"
	"github.com/germanamz/agentic/pkg/providers/openai"
	"github.com/germanamz/agentic/pkg/toolkit/defaults"
	"github.com/germanamz/agentic/pkg/toolkit/repl"
	"github.com/germanamz/agentic/pkg/toolkit/search"
	"github.com/germanamz/agentic/pkg/toolkit/stock"
	"github.com/germanamz/agentic/pkg/tools/mcpclient"
	"github.com/germanamz/agentic/pkg/tools/mcpserver"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"github.com/germanamz/agentic/pkg/transcript"
)

// Name identifies the service to MCP peers.
const Name = "agentic"

// Engine is the composition root that assembles the model client, the tool
// registry and the agent loop from configuration. It is safe for concurrent
// use; every Ask is an independent run.
type Engine struct {
	cfg        Config
	log        *slog.Logger
	events     *EventBus
	client     modeladapter.Client
	tools      *toolbox.ToolBox
	options    agent.Options
	mcpClients []*mcpclient.MCPClient
	mcpServer  *mcpserver.MCPServer
}

// New creates an Engine talking to the OpenAI-compatible server described by
// cfg.Model.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter := openai.New(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Name)
	adapter.Sampling = cfg.Model.Sampling

	return NewWithClient(ctx, cfg, modeladapter.AsClient(adapter), log)
}

// NewWithClient creates an Engine around an existing model client. It
// connects the configured MCP servers and builds the tool registry.
func NewWithClient(ctx context.Context, cfg Config, client modeladapter.Client, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		cfg:    cfg,
		log:    log,
		events: NewEventBus(),
		client: client,
	}

	e.tools = defaults.New(builtins(cfg.Tools).Toolboxes()...)

	// Connect MCP clients and import their tools.
	for _, mc := range cfg.MCPServers {
		c, err := connectMCP(ctx, mc)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		e.mcpClients = append(e.mcpClients, c)

		tb, err := c.ToolBox(ctx)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		log.Info("mcp server connected", "name", mc.Name, "tools", tb.Names())
		importTools(log, e.tools, mc.Name, tb)
	}

	e.mcpServer = mcpserver.New(Name, mcpclient.Version, e.tools)

	e.options = agent.Options{
		SystemPrompt:   cfg.Agent.SystemPrompt,
		MaxToolCalls:   cfg.Agent.MaxToolCalls,
		MaxSteps:       cfg.Agent.MaxSteps,
		ToolTimeout:    cfg.Agent.ToolTimeout,
		MaxRetries:     cfg.Agent.MaxRetries,
		RetryBaseDelay: cfg.Agent.RetryBaseDelay,
		Middleware: []agent.Middleware{
			agent.Recovery(),
			agent.Logger(log),
			agent.Timeout(cfg.Server.RequestTimeout),
		},
	}

	log.Info("engine ready", "model", cfg.Model.Name, "tools", e.tools.Names())

	return e, nil
}

func connectMCP(ctx context.Context, mc MCPServerConfig) (*mcpclient.MCPClient, error) {
	switch {
	case mc.Command != "":
		return mcpclient.New(ctx, mc.Command, mc.Args...)
	case mc.Transport == "sse":
		return mcpclient.NewSSE(ctx, mc.URL)
	default:
		return mcpclient.NewHTTP(ctx, mc.URL)
	}
}

// importTools merges src into dst. A tool that replaces one already
// registered is logged.
func importTools(log *slog.Logger, dst *toolbox.ToolBox, server string, src *toolbox.ToolBox) {
	for _, name := range src.Names() {
		if _, ok := dst.Get(name); ok {
			log.Warn("mcp tool replaces registered tool", "server", server, "tool", name)
		}
	}
	dst.Merge(src)
}

func builtins(tc ToolsConfig) defaults.Builtins {
	return defaults.Builtins{
		Search: tc.Search.Enabled,
		REPL:   tc.REPL.Enabled,
		Stock:  tc.Stock.Enabled,
		SearchOpts: search.Options{
			BaseURL:    tc.Search.BaseURL,
			MaxResults: tc.Search.MaxResults,
		},
		REPLOpts: repl.Options{
			Interpreter: tc.REPL.Interpreter,
			WorkDir:     tc.REPL.WorkDir,
		},
		StockOpts: stock.Options{BaseURL: tc.Stock.BaseURL},
	}
}

// Ask runs the agent loop for query. onFragment, when non-nil, receives each
// transcript fragment as it is recorded. Activity is also published on the
// event bus.
func (e *Engine) Ask(ctx context.Context, query string, onFragment func(transcript.Fragment)) (agent.Result, error) {
	var runID string

	opts := e.options
	opts.Middleware = append([]agent.Middleware{e.publishRun(&runID)}, e.options.Middleware...)
	opts.OnFragment = func(f transcript.Fragment) {
		e.events.Publish(Event{Kind: EventFragment, RunID: runID, Data: f})
		if onFragment != nil {
			onFragment(f)
		}
	}
	opts.OnTransition = func(from, to agent.State) {
		e.events.Publish(Event{
			Kind:  EventTransition,
			RunID: runID,
			Data:  Transition{From: from.String(), To: to.String()},
		})
	}

	return agent.New(e.client, e.tools, opts, e.log).Run(ctx, query)
}

// publishRun records the run id for the fragment callbacks and publishes the
// run boundaries.
func (e *Engine) publishRun(runID *string) agent.Middleware {
	return func(next agent.Runner) agent.Runner {
		return agent.RunnerFunc(func(ctx context.Context, query string) (agent.Result, error) {
			*runID = agentctx.RunIDFromContext(ctx)
			e.events.Publish(Event{Kind: EventRunStart, RunID: *runID, Data: query})

			res, err := next.Run(ctx, query)
			if err != nil {
				e.events.Publish(Event{Kind: EventError, RunID: *runID, Data: err})
				return res, err
			}

			e.events.Publish(Event{Kind: EventRunEnd, RunID: *runID, Data: res})
			return res, nil
		})
	}
}

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// ToolBox returns the tool registry.
func (e *Engine) ToolBox() *toolbox.ToolBox { return e.tools }

// Config returns the configuration the engine was built from.
func (e *Engine) Config() Config { return e.cfg }

// ModelName returns the configured model identifier.
func (e *Engine) ModelName() string { return e.cfg.Model.Name }

// MCPServer returns an MCP server exposing the tool registry.
func (e *Engine) MCPServer() *mcpserver.MCPServer { return e.mcpServer }

// Close shuts down MCP clients and releases resources.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.mcpClients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.mcpClients = nil
	return errors.Join(errs...)
}
