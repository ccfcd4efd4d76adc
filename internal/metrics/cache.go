package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal) }

var cacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "exercise_cache_requests_total",
		Help: "Cache hits, misses and errors per cache.",
	},
	[]string{"cache", "result"},
)

// IncCacheRequest counts one cache lookup; result is hit, miss or error.
func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
