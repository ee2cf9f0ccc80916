// Package observability exposes Prometheus metrics for the processing
// pipeline and the retrieval engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline and query instrumentation.
type Metrics struct {
	MeetingsProcessed *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	StageFailures     *prometheus.CounterVec
	ChunksIndexed     prometheus.Counter
	Queries           prometheus.Counter
	QueryDuration     prometheus.Histogram
}

// NewMetrics registers the metric set on the given registerer. Pass nil to
// use the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		MeetingsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quicknotes",
			Name:      "meetings_processed_total",
			Help:      "Meetings that finished processing, by final status.",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quicknotes",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quicknotes",
			Name:      "stage_failures_total",
			Help:      "Stage failures, by stage and error code.",
		}, []string{"stage", "code"}),
		ChunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quicknotes",
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the vector index.",
		}),
		Queries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quicknotes",
			Name:      "queries_total",
			Help:      "Natural-language queries answered.",
		}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quicknotes",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

// NewNopMetrics returns metrics on a throwaway registry, for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
