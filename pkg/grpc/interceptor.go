package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
)

const RequestIDMetadataKey = "x-request-id"

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(RequestIDMetadataKey); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return uuid.New().String()
}

// CreateLoggingInterceptor logs one line per unary call. Request messages are
// never logged since they carry ciphertext.
func CreateLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		id := requestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, id))

		resp, err := handler(ctx, req)

		code := status.Code(err)
		log := common.GetLoggerWith(common.LoggerNameGrpcServer, zap.String("request_id", id))
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}

		switch code {
		case codes.OK:
			log.Info("Call completed successfully", fields...)
		case codes.Internal, codes.Unknown, codes.Unavailable:
			log.Error("Call completed with server error", fields...)
		default:
			log.Warn("Call completed with client error", fields...)
		}

		return resp, err
	}
}
