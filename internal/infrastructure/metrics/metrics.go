package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat service metrics.
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gracechat",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gracechat",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Guidance provider calls by outcome (ok, upstream_error, parse_error)
	GuidanceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gracechat",
			Subsystem: "server",
			Name:      "guidance_calls_total",
			Help:      "Total guidance provider invocations",
		},
		[]string{"provider", "outcome"},
	)

	// Guidance round-trip duration
	GuidanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gracechat",
			Subsystem: "server",
			Name:      "guidance_duration_seconds",
			Help:      "Guidance provider round-trip duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// Requests rejected by the per-caller quota
	QuotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gracechat",
			Subsystem: "server",
			Name:      "quota_rejections_total",
			Help:      "Requests rejected by the rolling-window rate limit",
		},
	)
)
