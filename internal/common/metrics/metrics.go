// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of assistant requests by outcome",
		},
		[]string{"outcome"},
	)

	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Duration of assistant requests in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	AILoopIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_loop_iterations",
			Help:    "Model calls per assistant request",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	AIToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tool_calls_total",
			Help: "Tool invocations requested by the model",
		},
		[]string{"tool", "status"},
	)

	CRMWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_writes_total",
			Help: "CRM record writes by entity",
		},
		[]string{"entity", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)
)
