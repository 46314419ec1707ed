// README: Prometheus collectors for the planning engine and HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nile"

var (
	PlannerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planner_requests_total",
		Help:      "Planner turns by request kind and outcome.",
	}, []string{"kind", "outcome"})

	StaleResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Planner or gateway completions dropped because a newer request superseded them or the session ended.",
	}, []string{"kind"})

	RevealSequences = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reveal_sequences_total",
		Help:      "Itinerary reveal sequences started.",
	})

	Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Itinerary confirmations by outcome.",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Planning sessions currently alive.",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
