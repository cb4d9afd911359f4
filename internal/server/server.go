// Package server exposes the operational HTTP surface: health probes,
// Prometheus metrics and scheduler introspection.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/horarios-app/horarios-bot/internal/health"
	"github.com/horarios-app/horarios-bot/internal/lifecycle"
	"github.com/horarios-app/horarios-bot/internal/middleware"
	"github.com/horarios-app/horarios-bot/internal/scheduler"
	"github.com/horarios-app/horarios-bot/pkg/logger"
)

// Deps collects what the HTTP handlers read from.
type Deps struct {
	Checker   *health.Checker
	Probes    *lifecycle.Probes
	Scheduler *scheduler.Service
	Log       *slog.Logger
}

// NewHandler builds the routed and instrumented HTTP handler.
func NewHandler(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/livez", livenessHandler(deps.Probes))
	mux.HandleFunc("/healthz", healthHandler(deps.Checker))
	mux.HandleFunc("/api/scheduler/status", schedulerStatusHandler(deps.Scheduler))

	handler := middleware.Logging(deps.Log)(mux)

	return logger.Middleware(handler)
}

func livenessHandler(probes *lifecycle.Probes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probes != nil {
			if err := probes.Liveness(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}
}

func healthHandler(checker *health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "health checker not configured"})
			return
		}

		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, state := range results {
			if state != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		writeJSON(w, status, results)
	}
}

func schedulerStatusHandler(svc *scheduler.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not configured"})
			return
		}

		writeJSON(w, http.StatusOK, svc.Status())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// The response is already committed; an encode failure here can only be
	// logged by the caller's middleware.
	_ = json.NewEncoder(w).Encode(payload)
}
