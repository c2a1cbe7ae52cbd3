package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	QuoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quote_requests_total", Help: "Quote attempts per provider and outcome"},
		[]string{"provider", "outcome"},
	)
	QuoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_latency_seconds",
			Help:    "Quote latency per provider",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	SwapBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swap_builds_total", Help: "Swap transactions built per provider"},
		[]string{"provider"},
	)
	ProfileUpserts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "profile_upserts_total", Help: "Profile create/update operations"},
	)
)

// Outcome labels for QuoteRequests.
const (
	OutcomeOK      = "ok"
	OutcomeNoRoute = "no_route"
	OutcomeError   = "error"
)

func init() {
	prometheus.MustRegister(QuoteRequests, QuoteLatency, SwapBuilds, ProfileUpserts)
}
