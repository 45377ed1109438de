package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request decisions used as metric labels.
const (
	decisionBypass      = "bypass"
	decisionPassthrough = "passthrough"
	decisionUpsert      = "upsert"
	decisionUncacheable = "uncacheable"
	decisionNotModified = "not_modified"
	decisionServed      = "served"
	decisionFallback    = "fallback"
	decisionError       = "error"
)

var (
	// Requests tracks requests by cache decision
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Total number of requests seen by the cache filter",
		},
		[]string{"decision"},
	)

	// RequestDuration tracks request latency by cache decision
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_request_duration_seconds",
			Help:    "Duration of requests seen by the cache filter",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"decision"},
	)
)
