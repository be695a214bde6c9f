package sessionguard

import "context"

type clientIDContextKey struct{}

// WithClientID attaches a client-context identifier (typically a browser
// tab or embedded-view ID) to ctx. Pending-session operations use it to
// key the persisted two-factor flag, overriding the Guard's default
// client ID. Hosts that run a single context never need it.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, clientID)
}

func clientIDFromContext(ctx context.Context, fallback string) string {
	if ctx == nil {
		return fallback
	}

	id, _ := ctx.Value(clientIDContextKey{}).(string)
	if id == "" {
		return fallback
	}
	return id
}
