/*
Package metrics exposes Prometheus collectors for the playout engine's
managers, a small Timer helper for observing operation durations, and a
process-local health/readiness tracker used by the debug HTTP endpoints each
manager process optionally serves.

# Metric Families

Handler supervision: yarely_handlers_total (by kind/state),
yarely_handler_restarts_total (by kind/reason), yarely_handler_reinits_total.

RPC bus: yarely_rpc_requests_total (by verb/outcome),
yarely_rpc_round_trip_duration_seconds, yarely_rpc_socket_discards_total.

Subscription reassembly: yarely_subscription_reassemblies_total (by outcome),
yarely_subscription_reassembly_duration_seconds,
yarely_subscription_nesting_rejections_total.

Content cache: yarely_cache_hits_total (by strictness/outcome),
yarely_cache_downloads_total (by outcome), yarely_cache_download_duration_seconds,
yarely_cache_bytes_downloaded_total, yarely_cache_queue_depth.

Filter pipeline: yarely_filter_pipeline_duration_seconds,
yarely_filter_items_pruned_total (by filter name).

Lottery scheduler: yarely_lottery_tickets_drawn_total,
yarely_lottery_allocation_duration_seconds (by allocator).

Scheduling manager: yarely_scheduling_cycle_duration_seconds,
yarely_scheduling_reentry_total, yarely_scheduling_queue_depth.

Display manager: yarely_renderers_total (by visibility state),
yarely_renderer_starts_total, yarely_renderer_failures_total (by reason).

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	err := cache.Fetch(item)
	timer.ObserveDuration(metrics.CacheDownloadDuration)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.CacheDownloadsTotal.WithLabelValues(outcome).Inc()

# Health Tracking

RegisterComponent/UpdateComponent let each manager report whether its own
dependencies (subscription store open, RPC bus listening, and so on) are
healthy. GetHealth/GetReadiness aggregate that into overall status; readiness
additionally requires the process's critical components — procmanager,
xmlwire, subscription — to be registered and healthy before declaring ready.
HealthHandler/ReadyHandler/LivenessHandler wrap these as http.HandlerFunc for
wiring into a debug mux.

# Integration Points

  - pkg/procmanager: updates handler gauges and restart/reinit counters
  - pkg/subscription: times reassembly cycles and counts nesting rejections
  - pkg/cache: times downloads, counts hits/misses and queue depth
  - pkg/scheduling: times scheduling cycles and tracks queue depth
  - pkg/display: tracks renderer counts, starts, and failures

The RPC bus, filter pipeline and lottery scheduler collectors are
registered but not updated by any package in this module.
*/
package metrics
