// Package agentctx provides shared context key helpers for propagating run
// identity across package boundaries. It is intentionally zero-dependency so
// agent, tools and the HTTP layer can all import it without creating cycles.
package agentctx

import "context"

type runIDCtxKey struct{}

// WithRunID returns a new context carrying the given run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDCtxKey{}, id)
}

// RunIDFromContext extracts the run id from the context.
// Returns "" if no run id is present.
func RunIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(runIDCtxKey{}).(string)
	return v
}
