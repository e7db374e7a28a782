// Package httpapi exposes the agent over HTTP: health and configuration
// probes, the tool listing, the blocking /ask endpoint, a WebSocket variant
// that streams transcript fragments, and the tool registry over MCP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/germanamz/agentic/pkg/agent"
	"github.com/germanamz/agentic/pkg/tools/toolbox"
	"github.com/germanamz/agentic/pkg/transcript"
)

// DefaultMaxRequestBodyBytes bounds the /ask request body.
const DefaultMaxRequestBodyBytes int64 = 1 << 20

// Service is what the handlers need from the engine.
type Service interface {
	Ask(ctx context.Context, query string, onFragment func(transcript.Fragment)) (agent.Result, error)
	ModelName() string
	ToolBox() *toolbox.ToolBox
}

// Options configures the router.
type Options struct {
	// MCP, when non-nil, is mounted at /mcp.
	MCP http.Handler
	// MaxRequestBodyBytes bounds request bodies (default 1 MiB).
	MaxRequestBodyBytes int64
	// Logger receives request logs. nil discards them.
	Logger *slog.Logger
}

type handlers struct {
	svc     Service
	log     *slog.Logger
	maxBody int64
}

// NewRouter returns the service's HTTP handler.
func NewRouter(svc Service, opts Options) http.Handler {
	if opts.MaxRequestBodyBytes <= 0 {
		opts.MaxRequestBodyBytes = DefaultMaxRequestBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	h := &handlers{
		svc:     svc,
		log:     opts.Logger,
		maxBody: opts.MaxRequestBodyBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /config", h.config)
	mux.HandleFunc("GET /tools", h.tools)
	mux.HandleFunc("POST /ask", h.ask)
	mux.HandleFunc("GET /ask/stream", h.askStream)
	if opts.MCP != nil {
		mux.Handle("/mcp", opts.MCP)
	}

	return requestLoggingMiddleware(opts.Logger)(mux)
}
