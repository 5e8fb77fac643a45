package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks cache hits by strategy
	Hits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "The number of cache hits, by strategy",
		},
		[]string{"strategy"},
	)

	// Misses tracks cache misses
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "The number of cache misses",
		},
	)

	// CheckDuration tracks how long lookups take
	CheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cache_check_duration_seconds",
			Help:    "The time spent answering a cache lookup",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // from 100µs to ~6.5s
		},
	)

	// StoreDuration tracks how long writes take
	StoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cache_store_duration_seconds",
			Help:    "The time spent storing a response",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	// SemanticCandidates tracks how many candidates each semantic scan walked
	SemanticCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cache_semantic_candidates",
			Help:    "The number of candidate entries compared per semantic lookup",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)
)
