// Package context carries request-scoped values across layers.
package context

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID returns ctx unchanged when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
