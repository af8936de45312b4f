package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds request handling by wrapping the request context with a
// deadline. Handlers observe the deadline through ctx; store and ledger
// calls fail once it passes. Not for streaming routes, which carry their
// own generation deadline.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
