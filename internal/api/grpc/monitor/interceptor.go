package monitor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/oshokin/pool-guard/internal/logger"
)

// LoggingInterceptor attaches base's logger to every call and logs its outcome.
func LoggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	log := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.WithKV(logger.ToContext(ctx, log), "method", info.FullMethod)
		started := time.Now()

		resp, err := handler(ctx, req)
		if err != nil {
			logger.WarnKV(ctx, "Control call failed",
				"code", status.Code(err).String(), "duration", time.Since(started).String(), "error", err)

			return resp, err
		}

		logger.DebugKV(ctx, "Control call served", "duration", time.Since(started).String())

		return resp, nil
	}
}
