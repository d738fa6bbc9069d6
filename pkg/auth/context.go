package auth

import (
	"context"

	"github.com/chainsafe/spiral-bridge/pkg/bridge"
)

// Context keys for authentication data
type contextKey string

// ContextKeyCaller is the context key for the authenticated caller identity
const ContextKeyCaller contextKey = "caller"

// WithCaller adds the caller identity to the context
func WithCaller(ctx context.Context, caller bridge.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// CallerFromContext retrieves the caller identity from the context
func CallerFromContext(ctx context.Context) (bridge.Identity, bool) {
	caller, ok := ctx.Value(ContextKeyCaller).(bridge.Identity)
	return caller, ok
}
