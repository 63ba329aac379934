package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics.
var (
	storeMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_mutations_total",
			Help: "Total number of store field writes by outcome",
		},
		[]string{"store", "result"},
	)

	storeErrorsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_recorded_total",
			Help: "Total number of error messages recorded in store error lists",
		},
		[]string{"store"},
	)

	storeFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_fetch_duration_seconds",
			Help:    "Duration of store fetch operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation", "outcome"},
	)
)

// Mutation results.
const (
	resultApplied  = "applied"
	resultRejected = "rejected"
)
