package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/pkg/logger"
)

const TraceHeader = "X-Trace-ID"

// RequestID attaches a trace id to the request logger and echoes it back.
// An incoming id is reused only when it parses as a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
