package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbsearch",
			Name:      "cache_requests_total",
			Help:      "Cache lookups per layer by result",
		},
		[]string{"layer", "result"}, // result: "hit" / "miss"
	)

	BranchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbsearch",
			Name:      "branch_duration_seconds",
			Help:      "Search branch duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"branch", "outcome"}, // outcome: "ok" / "empty" / "error"
	)

	StructuredFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbsearch",
			Name:      "structured_fallback_total",
			Help:      "Structured search retries and scope fallbacks by reason",
		},
		[]string{"reason"},
	)

	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbsearch",
			Name:      "retrievals_total",
			Help:      "Retrieve calls by outcome",
		},
		[]string{"outcome"}, // "cached" / "ok" / "unavailable"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(BranchDuration)
	prometheus.MustRegister(StructuredFallbackTotal)
	prometheus.MustRegister(RetrievalsTotal)
	retrievalMetricsRegistered = true
}
