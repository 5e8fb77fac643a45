package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FallbackEngagements tracks how many times the supervisor abandoned the
	// remote store for the in-process fallback
	FallbackEngagements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_store_fallback_engagements_total",
			Help: "The number of times the remote store was abandoned for the in-process fallback",
		},
	)

	// Reconnects tracks successful returns to the remote store
	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_store_reconnects_total",
			Help: "The number of successful reconnections to the remote store",
		},
	)

	// OperationErrors tracks store operation failures by operation name
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_store_operation_errors_total",
			Help: "The number of failed store operations",
		},
		[]string{"op", "mode"},
	)
)
