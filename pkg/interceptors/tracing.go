package interceptors

import (
	"context"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewTracingInterceptor opens a server span per RPC.
func NewTracingInterceptor(tracer trace.Tracer) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, span := tracer.Start(ctx, req.Spec().Procedure,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("rpc.system", "connect_rpc"),
					attribute.String("rpc.method", req.Spec().Procedure),
				),
			)
			defer span.End()

			if requestID, ok := RequestIDFromContext(ctx); ok {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			resp, err := next(ctx, req)
			if err != nil {
				code := connect.CodeOf(err)
				span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", code.String()))
				span.RecordError(err)
				span.SetStatus(codes.Error, code.String())
				return resp, err
			}
			span.SetStatus(codes.Ok, "")
			return resp, nil
		}
	}
}
