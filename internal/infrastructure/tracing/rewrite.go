package tracing

import "context"

type rewriteKey struct{}

// WithRewrite marks ctx as an internal re-dispatch of a request that is
// already traced, measured and logged by the outer pass. Per-request
// middleware passes marked requests straight through.
func WithRewrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, rewriteKey{}, true)
}

// Rewritten reports whether ctx was marked by WithRewrite.
func Rewritten(ctx context.Context) bool {
	v, _ := ctx.Value(rewriteKey{}).(bool)
	return v
}
