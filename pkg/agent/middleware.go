package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/germanamz/agentic/pkg/agentctx"
)

// Runner executes one run of the loop.
type Runner interface {
	Run(ctx context.Context, query string) (Result, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, query string) (Result, error)

// Run calls the underlying function.
func (f RunnerFunc) Run(ctx context.Context, query string) (Result, error) {
	return f(ctx, query)
}

// Middleware wraps a Runner, returning a new Runner with added behaviour.
type Middleware func(next Runner) Runner

// --- Timeout middleware ---

// Timeout returns a Middleware that wraps the runner's context with a deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, query string) (Result, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Run(ctx, query)
		})
	}
}

// --- Recovery middleware ---

// Recovery returns a Middleware that catches panics and converts them to errors.
func Recovery() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, query string) (res Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					res = Result{}
					err = fmt.Errorf("agent panicked: %v", r)
				}
			}()

			return next.Run(ctx, query)
		})
	}
}

// --- Logger middleware ---

// Logger returns a Middleware that logs run start, duration, outcome and error.
func Logger(log *slog.Logger) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, query string) (Result, error) {
			runID := agentctx.RunIDFromContext(ctx)
			log.InfoContext(ctx, "run started", "run_id", runID, "query_len", len(query))

			start := time.Now()

			res, err := next.Run(ctx, query)

			duration := time.Since(start)

			if err != nil {
				log.ErrorContext(ctx, "run finished with error",
					"run_id", runID,
					"duration", duration,
					"error", err,
				)
			} else {
				log.InfoContext(ctx, "run finished",
					"run_id", runID,
					"duration", duration,
					"stop", res.Stop,
					"steps", res.Steps,
					"tool_calls", res.ToolCalls,
					"tokens", res.Usage.Total(),
				)
			}

			return res, err
		})
	}
}
