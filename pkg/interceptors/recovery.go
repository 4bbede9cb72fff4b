package interceptors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"connectrpc.com/connect"
)

// NewRecoveryInterceptor turns handler panics into internal errors.
func NewRecoveryInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "panic recovered", appendLoggerFields(ctx,
						"procedure", req.Spec().Procedure,
						"panic", fmt.Sprint(r),
						"stack", string(debug.Stack()),
					)...)
					resp = nil
					err = connect.NewError(connect.CodeInternal, errors.New("internal server error"))
				}
			}()
			return next(ctx, req)
		}
	}
}

func asConnectError(err error, target **connect.Error) bool {
	return errors.As(err, target)
}
