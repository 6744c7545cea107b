package featureflagx

import (
	"context"
)

type contextKey uint8

const (
	gateKey contextKey = iota + 1
	targetKey
)

// NewContext carries g to code that only receives a context, such as the
// handlers behind Gate.Middleware.
func NewContext(ctx context.Context, g *Gate) context.Context {
	return context.WithValue(ctx, gateKey, g)
}

func FromContext(ctx context.Context) (*Gate, bool) {
	g, ok := ctx.Value(gateKey).(*Gate)
	if !ok || g == nil {
		return nil, false
	}
	return g, true
}

// WithTarget attaches the evaluation target for calls made with ctx.
func WithTarget(ctx context.Context, t Target) context.Context {
	return context.WithValue(ctx, targetKey, t)
}

func TargetFromContext(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetKey).(Target)
	return t, ok
}
