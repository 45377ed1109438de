// Package metrics provides the Prometheus registry and scrape handler for
// the cache proxy. Metrics are defined in their respective packages (cache,
// httpcache, redisconn) and registered via promauto.
//
// This package also documents every exported metric.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the cache packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the scrape handler for Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Storage Metrics (pkg/cache):
//   - cache_fetch_total{outcome} (Counter): Conditional fetches by outcome (miss, hit, not_modified, changed)
//   - cache_upserts_total (Counter): Entries written
//   - cache_errors_total{operation} (Counter): Backend failures by operation (fetch, upsert, remove, evict)
//   - cache_evicted_entries_total{region} (Counter): Entries removed by region eviction
//   - cache_eviction_batches_total (Counter): Eviction batches executed
//   - cache_eviction_duration_seconds (Histogram): Duration of full region evictions
//   - cache_script_loads_total (Counter): Eviction script uploads, including NOSCRIPT reloads
//
// Request Metrics (pkg/httpcache):
//   - cache_requests_total{decision} (Counter): Requests by decision
//     (bypass, passthrough, upsert, uncacheable, not_modified, served, fallback, error)
//   - cache_request_duration_seconds{decision} (Histogram): Request duration by decision
//
// Connection Metrics (pkg/redisconn):
//   - redis_connect_attempts_total{result} (Counter): Startup connection attempts
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cache_requests_total{decision=~"served|not_modified"}[5m])) /
//   sum(rate(cache_requests_total{decision!~"bypass|passthrough"}[5m]))
//
//   # Hardened Mode Fallbacks
//   rate(cache_requests_total{decision="fallback"}[5m]) > 0
//
//   # Backend Error Rate
//   sum by (operation) (rate(cache_errors_total[5m]))
//
//   # P95 Eviction Duration
//   histogram_quantile(0.95, rate(cache_eviction_duration_seconds_bucket[5m]))
