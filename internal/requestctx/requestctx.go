// Package requestctx carries per-request identifiers through contexts
// without the HTTP layer importing domain packages, or vice versa.
package requestctx

import "context"

type key int

const requestIDKey key = iota

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id previously attached, or the
// empty string when called outside a request scope.
func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}
