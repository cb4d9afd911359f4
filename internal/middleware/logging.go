package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/horarios-app/horarios-bot/pkg/logger"
)

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging records every HTTP request with its status, latency and
// correlation id.
func Logging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.status),
				slog.Duration("duration", time.Since(start)),
			}
			if id := logger.CorrelationIDFromContext(r.Context()); id != "" {
				attrs = append(attrs, slog.String("correlation_id", id))
			}

			log.Info("http request", attrs...)
		})
	}
}
