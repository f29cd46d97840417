package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const correlationIDHeader = "X-Correlation-ID"

type correlationKey struct{}

// withCorrelationID propagates the caller's X-Correlation-ID or generates
// one, stores it in the request context, and echoes it on the response so
// callers can trace the run.
func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(correlationIDHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), correlationKey{}, correlationID)
		w.Header().Set(correlationIDHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// correlationIDFrom returns the request's correlation id, or "" when the
// middleware did not run (an internal wiring error, not a pipeline
// failure).
func correlationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
