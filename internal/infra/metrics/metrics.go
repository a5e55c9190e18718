package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_hits_total",
			Help: "Reads served from a fresh cache entry",
		},
		[]string{"resource"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_misses_total",
			Help: "Reads that needed a backend fetch",
		},
		[]string{"resource"},
	)

	CoalescedReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_coalesced_reads_total",
			Help: "Reads that joined an already outstanding fetch",
		},
		[]string{"resource"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_cache_fetch_duration_seconds",
			Help:    "Duration of cache fill fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_fetch_errors_total",
			Help: "Cache fill fetches that failed",
		},
		[]string{"resource"},
	)

	DiscardedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_discarded_responses_total",
			Help: "Responses dropped because a newer response was already applied",
		},
		[]string{"resource"},
	)

	FetchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_cache_fetches_in_flight",
			Help: "Number of backend fetches currently outstanding",
		},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_mutations_total",
			Help: "Writes issued to the backend",
		},
		[]string{"resource", "status"},
	)

	Invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_invalidations_total",
			Help: "Cache entries marked stale",
		},
		[]string{"resource", "origin"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_backend_request_duration_seconds",
			Help:    "Duration of REST backend requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	InvalidationEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_invalidation_events_published_total",
			Help: "Invalidation events published for other replicas",
		},
		[]string{"status"},
	)

	InvalidationEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_invalidation_events_consumed_total",
			Help: "Invalidation events received from other replicas",
		},
		[]string{"status"},
	)
)
