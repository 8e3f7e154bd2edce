package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	admissionOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewm_service",
			Name:      "admission_outcomes_total",
			Help:      "Participation request submissions by outcome",
		},
		[]string{"outcome"}, // confirmed, pending, capacity_exhausted, refused, error
	)

	statsHitsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ewm_service",
			Name:      "stats_hits_dropped_total",
			Help:      "View hits dropped because the stats queue was full",
		},
	)

	outboxMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewm_service",
			Name:      "outbox_messages_total",
			Help:      "Outbox publish attempts by result",
		},
		[]string{"result"}, // sent, retry, dead
	)
)

// Recorder exposes the business counters to components that take a narrow interface.
type Recorder struct{}

func (Recorder) RecordAdmission(outcome string) {
	admissionOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (Recorder) RecordStatsDrop() {
	statsHitsDroppedTotal.Inc()
}

func RecordOutbox(result string) {
	outboxMessagesTotal.WithLabelValues(result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ewm_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ewm_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ewm_service",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests being served",
		},
	)
)

// HTTPStarted marks a request in flight and returns the func that records its outcome.
func HTTPStarted() func(method, route string, status int, elapsed time.Duration) {
	httpInFlight.Inc()
	return func(method, route string, status int, elapsed time.Duration) {
		httpInFlight.Dec()
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpRequestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
	}
}
