package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipshare_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipshare_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthOutcomes counts gate decisions: authorized, rotated or rejected.
	AuthOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipshare_auth_outcomes_total",
		Help: "Authentication gate outcomes",
	}, []string{"outcome"})

	// VisibilityDenials counts denied post reads by privacy value.
	VisibilityDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipshare_visibility_denials_total",
		Help: "Post reads denied by privacy",
	}, []string{"privacy"})

	// UnresolvedRelationships counts follow edges whose user no longer resolves.
	UnresolvedRelationships = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipshare_unresolved_relationships_total",
		Help: "Relationship ids dropped because the user could not be loaded",
	}, []string{"list"})

	// CacheLookups counts cache-aside lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipshare_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
