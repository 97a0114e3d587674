package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts cache operations by kind and outcome.
	// Labels: op (get, set, delete, invalidate), result (hit, miss, ok, error)
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantstore",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of cache operations by kind and outcome",
		},
		[]string{"op", "result"},
	)

	// invalidatedKeysTotal counts keys removed by pattern invalidation.
	invalidatedKeysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tenantstore",
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Total number of keys removed by pattern invalidation",
		},
	)
)
