package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters, registered on the default registry served by NewServer.
var (
	RedirectsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_redirects_served_total",
		Help: "Successful short-link redirects.",
	})

	LinkCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_link_cache_hits_total",
		Help: "Link resolutions answered from the cache store.",
	})

	LinkCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_link_cache_misses_total",
		Help: "Link resolutions that fell back to the durable store.",
	})

	FilterNegatives = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_filter_negatives_total",
		Help: "Lookups answered NotFound by the bloom filter alone.",
	})

	AllocationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_allocation_retries_total",
		Help: "Generated-code collisions that triggered a retry.",
	})

	CodeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_code_conflicts_total",
		Help: "Requested-code allocations rejected with a conflict.",
	})

	ClickEventsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_click_events_recorded_total",
		Help: "Click events durably appended to the event log.",
	})

	CounterIncrementsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snaplink_counter_increments_dropped_total",
		Help: "Best-effort cache counter increments that failed.",
	})
)
