package postman

import "context"

type clientIDKey struct{}

// WithClient marks the context as belonging to the client with the given ID.
func WithClient(parent context.Context, clientID uint64) context.Context {
	return context.WithValue(parent, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the ID of the client that issued the request, if any.
func ClientIDFromContext(ctx context.Context) (uint64, bool) {
	clientID, ok := ctx.Value(clientIDKey{}).(uint64)
	return clientID, ok
}

type noRetryKey struct{}

// withoutRetry marks the request as one the transport must send at most once.
func withoutRetry(parent context.Context) context.Context {
	return context.WithValue(parent, noRetryKey{}, true)
}

// retryAllowed reports whether the request issued with ctx may be resent by the transport.
func retryAllowed(ctx context.Context) bool {
	noRetry, _ := ctx.Value(noRetryKey{}).(bool)
	return !noRetry
}
