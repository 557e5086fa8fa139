// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"net/http"

	"github.com/carboncoin/carboncoin-api/internal/api/shared"
)

// TraceMiddleware attaches a trace ID to every request context, so log lines
// and error responses for one request can be correlated.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
