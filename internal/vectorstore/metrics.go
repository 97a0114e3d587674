package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts vector-store operations by kind and outcome.
	// Labels: op (create, delete, upsert, remove, search, stats, migrate,
	// clear, health), result (ok, error)
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tenantstore",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector-store operations by kind and outcome",
		},
		[]string{"op", "result"},
	)

	// upsertedPointsTotal counts points written by AddDocumentVectors.
	upsertedPointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tenantstore",
			Subsystem: "vectorstore",
			Name:      "upserted_points_total",
			Help:      "Total number of points written by document ingestion",
		},
	)

	// migratedPointsTotal counts points copied between tenant collections.
	migratedPointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tenantstore",
			Subsystem: "vectorstore",
			Name:      "migrated_points_total",
			Help:      "Total number of points copied by tenant migration",
		},
	)

	// healthStatus indicates current backend health (1=healthy, 0=degraded).
	healthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tenantstore",
			Subsystem: "vectorstore",
			Name:      "health_status",
			Help:      "Current backend health status (1=healthy, 0=degraded)",
		},
	)
)

func recordOperation(op string, err error) {
	if err != nil {
		operationsTotal.WithLabelValues(op, "error").Inc()
		return
	}
	operationsTotal.WithLabelValues(op, "ok").Inc()
}
