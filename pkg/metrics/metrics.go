package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Handler/subprocess supervision metrics
	HandlersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yarely_handlers_total",
			Help: "Total number of supervised handler subprocesses by kind and state",
		},
		[]string{"kind", "state"},
	)

	HandlerRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_handler_restarts_total",
			Help: "Total number of handler subprocess restarts by kind and reason",
		},
		[]string{"kind", "reason"},
	)

	HandlerReinitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_handler_reinits_total",
			Help: "Total number of full handler re-initializations after exceeding the failure limit",
		},
		[]string{"kind"},
	)

	// RPC bus metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_rpc_requests_total",
			Help: "Total number of RPC requests sent by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)

	RPCRoundTripDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yarely_rpc_round_trip_duration_seconds",
			Help:    "RPC request/reply round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)

	RPCSocketDiscardsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yarely_rpc_socket_discards_total",
			Help: "Total number of RPC sockets discarded after a reply timeout",
		},
	)

	// Subscription / CDS reassembly metrics
	SubscriptionReassembliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_subscription_reassemblies_total",
			Help: "Total number of CDS tree reassemblies by outcome",
		},
		[]string{"outcome"},
	)

	SubscriptionReassemblyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yarely_subscription_reassembly_duration_seconds",
			Help:    "Time taken to recursively reassemble a CDS tree in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SubscriptionNestingRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yarely_subscription_nesting_rejections_total",
			Help: "Total number of child subscriptions rejected by the scheme nesting allow-list",
		},
	)

	// Content cache metrics
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_cache_hits_total",
			Help: "Total number of cache lookups by strictness and outcome",
		},
		[]string{"strictness", "outcome"},
	)

	CacheDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_cache_downloads_total",
			Help: "Total number of content downloads by outcome",
		},
		[]string{"outcome"},
	)

	CacheDownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yarely_cache_download_duration_seconds",
			Help:    "Time taken to download and place a content item in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CacheBytesDownloadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yarely_cache_bytes_downloaded_total",
			Help: "Total number of bytes downloaded into the content cache",
		},
	)

	CacheQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "yarely_cache_queue_depth",
			Help: "Current number of content items queued for caching",
		},
	)

	// Filter pipeline metrics
	FilterPipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yarely_filter_pipeline_duration_seconds",
			Help:    "Time taken to run the full filter pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FilterItemsPrunedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_filter_items_pruned_total",
			Help: "Total number of content items pruned by filter name",
		},
		[]string{"filter"},
	)

	// Lottery scheduler metrics
	LotteryTicketsDrawnTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yarely_lottery_tickets_drawn_total",
			Help: "Total number of lottery tickets drawn to select content",
		},
	)

	LotteryAllocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yarely_lottery_allocation_duration_seconds",
			Help:    "Time taken for a ticket allocator to finish allocating in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"allocator"},
	)

	// Scheduling manager metrics
	SchedulingCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yarely_scheduling_cycle_duration_seconds",
			Help:    "Time taken for one item_scheduling cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulingReentryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yarely_scheduling_reentry_total",
			Help: "Total number of deferred item_scheduling re-runs triggered by a pending update",
		},
	)

	SchedulingQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "yarely_scheduling_queue_depth",
			Help: "Current depth of the pending CDS update queue",
		},
	)

	// Display manager metrics
	RenderersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yarely_renderers_total",
			Help: "Total number of renderers by visibility state",
		},
		[]string{"state"},
	)

	RendererStartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "yarely_renderer_starts_total",
			Help: "Total number of renderer subprocesses spawned",
		},
	)

	RendererFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarely_renderer_failures_total",
			Help: "Total number of renderer preparation failures by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(HandlersTotal)
	prometheus.MustRegister(HandlerRestartsTotal)
	prometheus.MustRegister(HandlerReinitsTotal)

	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRoundTripDuration)
	prometheus.MustRegister(RPCSocketDiscardsTotal)

	prometheus.MustRegister(SubscriptionReassembliesTotal)
	prometheus.MustRegister(SubscriptionReassemblyDuration)
	prometheus.MustRegister(SubscriptionNestingRejectionsTotal)

	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheDownloadsTotal)
	prometheus.MustRegister(CacheDownloadDuration)
	prometheus.MustRegister(CacheBytesDownloadedTotal)
	prometheus.MustRegister(CacheQueueDepth)

	prometheus.MustRegister(FilterPipelineDuration)
	prometheus.MustRegister(FilterItemsPrunedTotal)

	prometheus.MustRegister(LotteryTicketsDrawnTotal)
	prometheus.MustRegister(LotteryAllocationDuration)

	prometheus.MustRegister(SchedulingCycleDuration)
	prometheus.MustRegister(SchedulingReentryTotal)
	prometheus.MustRegister(SchedulingQueueDepth)

	prometheus.MustRegister(RenderersTotal)
	prometheus.MustRegister(RendererStartsTotal)
	prometheus.MustRegister(RendererFailuresTotal)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations and observing their duration
// into a histogram once the operation completes.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting the clock immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
