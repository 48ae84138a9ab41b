// Package telemetry holds the service's Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryDuration tracks top-K query latency by outcome (ok, invalid, error).
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insurtree_query_duration_seconds",
		Help:    "Top-K query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	}, []string{"outcome"})

	// SnapshotRecords is the size of the snapshot the latest query ran against.
	SnapshotRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "insurtree_snapshot_records",
		Help: "Number of records in the most recently queried snapshot",
	})

	// ImportJobs counts finished import jobs by terminal status.
	ImportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "insurtree_import_jobs_total",
		Help: "Total import jobs by terminal status",
	}, []string{"status"})

	// ImportRetries counts store writes retried after a transient error.
	ImportRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insurtree_import_retries_total",
		Help: "Total retried import store writes",
	})

	// QueueDepth is the number of import jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "insurtree_import_queue_depth",
		Help: "Import jobs waiting for a worker",
	})
)

// Outcome labels for QueryDuration.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)
