package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id on requests and replies.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns a kratos middleware that echoes the caller's
// X-Request-ID or assigns a fresh UUID, and stores it in the context.
func RequestID() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}

			id := tr.RequestHeader().Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			tr.ReplyHeader().Set(RequestIDHeader, id)

			return handler(context.WithValue(ctx, requestIDKey{}, id), req)
		}
	}
}

// RequestIDFromContext returns the id stored by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
