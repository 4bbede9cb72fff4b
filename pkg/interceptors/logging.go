package interceptors

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// NewLoggingInterceptor creates a new logging interceptor with payload size tracking
func NewLoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			requestSize := payloadSize(req.Any())

			logger.InfoContext(ctx, "RPC started", appendLoggerFields(ctx,
				"procedure", req.Spec().Procedure,
				"peer", req.Peer().Addr,
				"request_size_bytes", requestSize,
			)...)

			resp, err := next(ctx, req)

			duration := time.Since(start)

			// resp may hold a typed nil pointer when err is set
			responseSize := 0
			if err == nil && resp != nil {
				responseSize = payloadSize(resp.Any())
			}

			if err != nil {
				level := slog.LevelError
				if code := connect.CodeOf(err); code != connect.CodeInternal && code != connect.CodeUnknown {
					level = slog.LevelWarn
				}
				logger.Log(ctx, level, "RPC failed", appendLoggerFields(ctx,
					"procedure", req.Spec().Procedure,
					"code", connect.CodeOf(err).String(),
					"duration", duration.String(),
					"duration_ms", duration.Milliseconds(),
					"request_size_bytes", requestSize,
					"response_size_bytes", responseSize,
					"error", err,
				)...)
			} else {
				logger.InfoContext(ctx, "RPC completed", appendLoggerFields(ctx,
					"procedure", req.Spec().Procedure,
					"duration", duration.String(),
					"duration_ms", duration.Milliseconds(),
					"request_size_bytes", requestSize,
					"response_size_bytes", responseSize,
				)...)
			}

			return resp, err
		}
	}
}

// payloadSize is the JSON-encoded size of a message, 0 when it cannot be encoded.
func payloadSize(msg any) int {
	if msg == nil {
		return 0
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return 0
	}
	return len(b)
}

func appendLoggerFields(ctx context.Context, base ...any) []any {
	if requestID, ok := RequestIDFromContext(ctx); ok && requestID != "" {
		base = append(base, "request_id", requestID)
	}
	if userID, ok := GetUserIDFromContext(ctx); ok {
		base = append(base, "user_id", userID)
	}
	return base
}
