// Package obsmetrics provides Prometheus metrics for the live-sync engine,
// repurposing the teacher's metrics.go (promauto counters/histograms/gauges
// for an HTTP server) for this engine's own domain: rebuilds, deltas, sync
// batches, and per-device sync outcomes instead of HTTP requests.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesync_rebuilds_total",
			Help: "Total full rebuilds run, by platform.",
		},
		[]string{"platform"},
	)

	RebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livesync_rebuild_duration_seconds",
			Help:    "Time to run PackageGraph -> FileInventory -> DeltaPlanner -> apply.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	DeltaOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesync_delta_ops_total",
			Help: "Delta operations applied, by kind (mkdir, copy, rmfile, rmdir).",
		},
		[]string{"kind"},
	)

	SyncBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livesync_sync_batches_total",
			Help: "Total SyncBatch flushes.",
		},
	)

	SyncBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livesync_sync_batch_size",
			Help:    "Number of files coalesced per SyncBatch flush.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	DeviceSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesync_device_syncs_total",
			Help: "Device sync outcomes, by platform and result.",
		},
		[]string{"platform", "result"},
	)

	PackagesShadowedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesync_packages_shadowed_total",
			Help: "Dependency packages excluded from the graph, by reason.",
		},
		[]string{"reason"},
	)
)

// ObserveRebuild records one full rebuild's duration and bumps the counter.
func ObserveRebuild(platform string, d time.Duration) {
	RebuildsTotal.WithLabelValues(platform).Inc()
	RebuildDuration.WithLabelValues(platform).Observe(d.Seconds())
}
