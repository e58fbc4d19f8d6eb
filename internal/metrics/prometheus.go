package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts resolved client requests by outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcproxy_requests_total",
			Help: "Total number of client requests by outcome",
		},
		[]string{"outcome"},
	)

	// FramingRejections counts requests rejected before reaching the
	// dispatch core (parse errors, oversized bodies, invalid envelopes).
	FramingRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rpcproxy_framing_rejections_total",
			Help: "Total number of requests rejected at the framing layer",
		},
	)

	// DispatchesTotal counts upstream dispatch attempts per endpoint.
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcproxy_upstream_dispatches_total",
			Help: "Total number of upstream dispatch attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	// DispatchLatency tracks successful dispatch round-trip time.
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpcproxy_upstream_latency_seconds",
			Help:    "Upstream dispatch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// UnhealthyEndpoints gauges how many endpoints are out of rotation.
	UnhealthyEndpoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpcproxy_unhealthy_endpoints",
			Help: "Number of upstream endpoints currently marked unhealthy",
		},
	)

	// CacheHits and CacheMisses count response cache lookups.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rpcproxy_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rpcproxy_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)
)
