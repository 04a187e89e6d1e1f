package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// TreeOperations counts hierarchy writes by kind (category|attribute|material),
	// operation (create|update|delete) and result (success|failure).
	TreeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_tree_operations_total",
			Help: "Total number of hierarchy node writes",
		},
		[]string{"kind", "operation", "result"},
	)

	// StoredFiles counts uploaded assets persisted to storage by directory.
	StoredFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_stored_files_total",
			Help: "Total number of uploaded files written to storage",
		},
		[]string{"directory"},
	)

	// RemovedFiles counts stale assets unlinked from storage by result (success|failure).
	RemovedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_removed_files_total",
			Help: "Total number of stale files removed from storage",
		},
		[]string{"result"},
	)

	// Backups counts database backup runs by result (success|failure).
	Backups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_backups_total",
			Help: "Total number of database backup runs",
		},
		[]string{"result"},
	)

	// BackupDuration measures how long database dumps take.
	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_backup_duration_seconds",
			Help:    "Database backup duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result maps an error to the "success" / "failure" label value.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
