// Package api is the HTTP surface: the AI assistant endpoint, the CRM
// routes and the operational endpoints.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	AI       http.Handler
	CRM      *CRMHandler
	Checks   map[string]Check
	Identity IdentityHeaders
	Logger   logger.Logger
}

// NewRouter wires every route. Identity runs outermost so the metrics
// middleware sees the request the mux annotates with its pattern.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", Health)
	mux.Handle("GET /ready", Ready(d.Checks, d.Logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	if d.AI != nil {
		mux.Handle("POST /api/ai/process", d.AI)
	}
	if d.CRM != nil {
		d.CRM.Register(mux)
	}

	return IdentityMiddleware(d.Identity)(Instrument(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument counts requests by matched route pattern and status.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

func Health(w http.ResponseWriter, _ *http.Request) {
	apperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready runs every check under a short deadline and answers 503 naming the
// failing ones.
func Ready(checks map[string]Check, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			if log != nil {
				log.Warn("readiness check failed", map[string]interface{}{"failed": failed})
			}
			apperrors.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not ready",
				"failed": failed,
			})
			return
		}
		apperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}
