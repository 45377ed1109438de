package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchOutcomes tracks conditional fetches by outcome
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_fetch_total",
			Help: "Total number of conditional cache fetches",
		},
		[]string{"outcome"}, // "miss", "hit", "not_modified", "changed"
	)

	// Upserts tracks successful writes
	Upserts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_upserts_total",
			Help: "Total number of cache entries written",
		},
	)

	// CacheErrors tracks backend failures
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"}, // "fetch", "upsert", "remove", "evict"
	)

	// EvictedEntries tracks entries removed by region eviction
	EvictedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evicted_entries_total",
			Help: "Total number of cache entries removed by region eviction",
		},
		[]string{"region"},
	)

	// EvictionBatches tracks backend calls made while evicting
	EvictionBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_eviction_batches_total",
			Help: "Total number of eviction batches executed",
		},
	)

	// EvictionDuration tracks the wall time of a full region eviction
	EvictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cache_eviction_duration_seconds",
			Help:    "Duration of region evictions",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ScriptLoads tracks uploads of the eviction script
	ScriptLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_script_loads_total",
			Help: "Total number of eviction script loads",
		},
	)
)
