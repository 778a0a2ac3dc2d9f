package services

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	stageKey
	productKey
	requestIDKey
)

// withValue stores a non-empty identifier; empty values leave ctx untouched.
func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func lookup(ctx context.Context, key ctxKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID tags ctx with the pipeline invocation ID.
func WithRunID(ctx context.Context, id string) context.Context { return withValue(ctx, runIDKey, id) }

// RunIDFromContext returns the invocation ID, if any.
func RunIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, runIDKey) }

// WithStage tags ctx with the executing stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithProduct tags ctx with the product slug being rendered.
func WithProduct(ctx context.Context, slug string) context.Context {
	return withValue(ctx, productKey, slug)
}

func ProductFromContext(ctx context.Context) (string, bool) { return lookup(ctx, productKey) }

// WithRequestID tags ctx with a correlation ID for one generator call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }
