package server

import (
	"context"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// LoggingInterceptor logs every unary call with its method, latency and
// resulting code. It also assigns a request id from the x-request-id
// metadata or a fresh UUID.
func LoggingInterceptor(logger log.Logger) grpc.UnaryServerInterceptor {
	helper := log.NewHelper(log.With(logger, "module", "grpc"))
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("x-request-id"); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", id))
		ctx = context.WithValue(ctx, requestIDKey{}, id)

		reply, err := handler(ctx, req)

		level := log.LevelInfo
		code := int32(200)
		reason := ""
		if err != nil {
			se := kerrors.FromError(err)
			code, reason = se.Code, se.Reason
			level = log.LevelWarn
			if code >= 500 {
				level = log.LevelError
			}
		}
		helper.Log(level,
			"msg", "grpc call",
			"operation", info.FullMethod,
			"request_id", id,
			"code", code,
			"reason", reason,
			"latency", time.Since(start).Seconds(),
		)
		return reply, err
	}
}
