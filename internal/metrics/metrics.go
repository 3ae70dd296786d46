// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryDegradations counts list queries that had to be retried with a less specific predicate.
	QueryDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavoriz_store_query_degradations_total",
		Help: "List queries retried without ordering or secondary filters",
	}, []string{"collection", "stage"})

	// VersionConflicts counts optimistic-concurrency conflicts by operation.
	VersionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavoriz_plan_version_conflicts_total",
		Help: "Conditional meal plan writes rejected because the document changed",
	}, []string{"operation"})

	// CatalogFallbacks counts catalog calls served from the built-in sample set.
	CatalogFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavoriz_catalog_fallbacks_total",
		Help: "Recipe catalog calls answered from the built-in sample set",
	}, []string{"operation"})

	// ProfileCacheLookups counts profile cache hits and misses.
	ProfileCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavoriz_profile_cache_lookups_total",
		Help: "User profile cache lookups by result",
	}, []string{"result"})

	// HTTPRequests counts handled requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavoriz_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flavoriz_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
