// Package middleware holds the HTTP wrappers shared by the API server.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/infamy/internal/logger"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the id stored by Logger, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// statusRecorder captures the status code while staying flushable for SSE.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logger assigns a request id, recovers panics and logs one line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)
			reqLog := logger.WithRequestID(log, requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			defer func() {
				if p := recover(); p != nil {
					reqLog.Error("Handler panicked", "panic", p, "stack", string(debug.Stack()))
					http.Error(rec, "Internal server error", http.StatusInternalServerError)
				}
				reqLog.Info("Request handled",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"duration", time.Since(start),
					"remote_addr", r.RemoteAddr)
			}()

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, requestID)))
		})
	}
}
