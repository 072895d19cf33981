// Package metrics defines the Prometheus metrics exported by the shorturls
// server and the extract job.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsNamespace is the namespace for all shorturls metrics.
const MetricsNamespace = "shorturls"

// Metrics holds all Prometheus metrics for the snapshot pipeline and the
// cache-aside read path.
type Metrics struct {
	// Cache-aside read path
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheErrorsTotal prometheus.Counter
	SnapshotReads    prometheus.Counter

	// Extract job
	SnapshotsWritten prometheus.Counter
	DumpLinesTotal   prometheus.Counter
	DumpLinesSkipped prometheus.Counter
	DumpsProcessed   prometheus.Counter
}

// New creates and registers all shorturls metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_hits_total",
			Help:      "Total number of aggregation reads served from the cache",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_misses_total",
			Help:      "Total number of aggregation reads that fell back to disk",
		}),
		CacheErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_errors_total",
			Help:      "Total number of cache lookups or write-backs that failed",
		}),
		SnapshotReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "snapshot_reads_total",
			Help:      "Total number of snapshot artifacts read from disk",
		}),
		SnapshotsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "snapshots_written_total",
			Help:      "Total number of snapshot artifacts written",
		}),
		DumpLinesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "dump_lines_total",
			Help:      "Total number of dump lines read",
		}),
		DumpLinesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "dump_lines_skipped_total",
			Help:      "Total number of dump lines skipped as malformed or hostless",
		}),
		DumpsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "dumps_processed_total",
			Help:      "Total number of raw dumps aggregated",
		}),
	}
}
