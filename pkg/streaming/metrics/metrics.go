// Package metrics registers the Prometheus collectors shared across the
// streaming runtime, served by pkg/admin via prometheus/client_golang's
// default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BarriersEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_barriers_emitted_total",
			Help: "Barriers emitted by a fragment, labeled by fragment id.",
		},
		[]string{"fragment_id"},
	)

	ChannelQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowcore_channel_queue_depth",
			Help: "Current buffered message count on a directed actor edge.",
		},
		[]string{"up_id", "down_id"},
	)

	TopNCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_topn_cache_hits_total",
			Help: "Top-N region queries served from the in-memory cache without a store round trip.",
		},
		[]string{"region"},
	)

	TopNCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_topn_cache_misses_total",
			Help: "Top-N region queries that required a state-store scan.",
		},
		[]string{"region"},
	)

	StateStoreFlushLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowcore_state_store_flush_latency_seconds",
			Help:    "Latency of a per-epoch WriteBatch flush.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"keyspace"},
	)
)

func init() {
	prometheus.MustRegister(
		BarriersEmitted,
		ChannelQueueDepth,
		TopNCacheHits,
		TopNCacheMisses,
		StateStoreFlushLatency,
	)
}
