// Package metrics exposes the indexer's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IndexerMetrics holds all Prometheus metrics for the indexing pipeline.
type IndexerMetrics struct {
	RecordsTotal     *prometheus.CounterVec
	DocumentsTotal   *prometheus.CounterVec
	ExtractionErrors prometheus.Counter
	BulkItemFailures prometheus.Counter
	MessagesTotal    *prometheus.CounterVec
	FlushDuration    prometheus.Histogram
}

// New initializes and registers the pipeline metrics on the default registry.
func New() *IndexerMetrics {
	return &IndexerMetrics{
		RecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucket_indexer",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Notification records processed, by outcome.",
		}, []string{"outcome"}), // outcome: indexed, deleted, skipped
		DocumentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucket_indexer",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Documents appended to the queue, by type.",
		}, []string{"type"}), // type: object, package
		ExtractionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bucket_indexer",
			Subsystem: "pipeline",
			Name:      "extraction_errors_total",
			Help:      "Content extractions that failed and produced an empty-text document.",
		}),
		BulkItemFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "bucket_indexer",
			Subsystem: "search",
			Name:      "bulk_item_failures_total",
			Help:      "Documents rejected inside otherwise successful bulk calls.",
		}),
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucket_indexer",
			Subsystem: "consumer",
			Name:      "messages_total",
			Help:      "Queue messages consumed, by outcome.",
		}, []string{"outcome"}), // outcome: ok, failed
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bucket_indexer",
			Subsystem: "search",
			Name:      "flush_duration_seconds",
			Help:      "Wall time of bulk flushes to the search backend.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
