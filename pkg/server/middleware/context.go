package middleware

import "context"

// contextKey is a private type so middleware values cannot collide with
// other packages' context keys.
type contextKey string

const (
	// requestIDKey stores the unique request ID.
	requestIDKey contextKey = "request_id"

	// userIDKey stores the caller identity from X-User-ID.
	userIDKey contextKey = "user_id"
)

// GetRequestID extracts the request ID from the context, or "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetUserID extracts the caller identity from the context, or "".
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
