package interceptors

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// NewRequestIDInterceptor propagates the request id from header, or generates one,
// and echoes it back on the response.
func NewRequestIDInterceptor(header string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			requestID := req.Header().Get(header)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}
			ctx = context.WithValue(ctx, RequestIDKey, requestID)

			resp, err := next(ctx, req)
			if err != nil {
				var connectErr *connect.Error
				if asConnectError(err, &connectErr) {
					connectErr.Meta().Set(header, requestID)
				}
				return resp, err
			}
			if resp != nil {
				resp.Header().Set(header, requestID)
			}
			return resp, nil
		}
	}
}
