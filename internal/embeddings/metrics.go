package embeddings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VectorSourceTotal tracks where embedding vectors came from
	VectorSourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_embedding_source_total",
			Help: "The number of embedding vectors served, by source",
		},
		[]string{"source"},
	)

	// VectorDuration tracks how long producing a vector took
	VectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_embedding_duration_seconds",
			Help:    "The time spent producing an embedding vector",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // from 0.5ms to ~4s
		},
		[]string{"source"},
	)
)

const (
	sourceCache    = "cache"
	sourceModel    = "model"
	sourceFallback = "fallback"
)
