package interceptors

import "context"

type contextKey string

const (
	// UserIDKey holds the authenticated owner id as a string.
	UserIDKey contextKey = "user_id"
	// RequestIDKey holds the request correlation id.
	RequestIDKey contextKey = "request_id"
)

// GetUserIDFromContext returns the owner id set by the auth interceptor.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// RequestIDFromContext returns the id set by the request id interceptor.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	return requestID, ok
}
