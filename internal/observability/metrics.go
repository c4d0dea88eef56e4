// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Aggregation metrics
	TicksRead      *prometheus.CounterVec
	BucketsEmitted *prometheus.CounterVec
	ShardsRead     prometheus.Counter

	// Cleaning metrics
	TradesCleaned       prometheus.Counter
	NestedParseFailures *prometheus.CounterVec
	EventsFlattened     *prometheus.CounterVec
	EventsDropped       prometheus.Counter

	// Merge metrics
	EdgesComputed *prometheus.CounterVec

	// Remote query metrics
	GraphPagesFetched   *prometheus.CounterVec
	GraphRecordsFetched *prometheus.CounterVec
	GraphFetchTruncated *prometheus.CounterVec
	GraphRequestLatency *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gmx_edge_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Aggregation metrics
		TicksRead: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "ticks_read_total",
			Help:      "Total number of ticks read from trade shards",
		}, []string{"source"}),
		BucketsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "buckets_emitted_total",
			Help:      "Total number of price buckets emitted",
		}, []string{"source"}),
		ShardsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "shards_read_total",
			Help:      "Total number of trade shards read",
		}),

		// Cleaning metrics
		TradesCleaned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "trades_cleaned_total",
			Help:      "Total number of trade records normalized",
		}),
		NestedParseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "nested_parse_failures_total",
			Help:      "Total number of nested fields that failed to decode",
		}, []string{"field"}),
		EventsFlattened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "events_flattened_total",
			Help:      "Total number of position events produced by flattening",
		}, []string{"event_type"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "events_dropped_total",
			Help:      "Total number of position events dropped for missing fields",
		}),

		// Merge metrics
		EdgesComputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "edges_total",
			Help:      "Total number of merged rows by edge status",
		}, []string{"status"}),

		// Remote query metrics
		GraphPagesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "pages_fetched_total",
			Help:      "Total number of subgraph pages fetched",
		}, []string{"collection"}),
		GraphRecordsFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "records_fetched_total",
			Help:      "Total number of subgraph records fetched",
		}, []string{"collection"}),
		GraphFetchTruncated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "fetch_truncated_total",
			Help:      "Total number of paginated fetches that stopped before completion",
		}, []string{"collection", "reason"}),
		GraphRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "request_duration_seconds",
			Help:      "Subgraph request latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"collection"}),

		// Pipeline metrics
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}, []string{"pipeline", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300},
		}, []string{"pipeline"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile dumps the default registry in text format, for the node_exporter
// textfile collector. Used by the batch binaries that exit before any scrape.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordShard records one trade shard aggregated into buckets.
func RecordShard(source string, ticks, buckets int) {
	DefaultMetrics.ShardsRead.Inc()
	DefaultMetrics.TicksRead.WithLabelValues(source).Add(float64(ticks))
	DefaultMetrics.BucketsEmitted.WithLabelValues(source).Add(float64(buckets))
}

// RecordTradeCleaned increments the cleaned trades counter.
func RecordTradeCleaned() {
	DefaultMetrics.TradesCleaned.Inc()
}

// RecordNestedParseFailure records a nested field that failed to decode.
func RecordNestedParseFailure(field string) {
	DefaultMetrics.NestedParseFailures.WithLabelValues(field).Inc()
}

// RecordEventsFlattened records flattened and dropped event counts.
func RecordEventsFlattened(eventType string, kept int) {
	DefaultMetrics.EventsFlattened.WithLabelValues(eventType).Add(float64(kept))
}

// RecordEventsDropped records events dropped for missing fields.
func RecordEventsDropped(n int) {
	DefaultMetrics.EventsDropped.Add(float64(n))
}

// RecordEdge records one merged row by edge status.
func RecordEdge(status string) {
	DefaultMetrics.EdgesComputed.WithLabelValues(status).Inc()
}

// RecordGraphPage records one fetched subgraph page.
func RecordGraphPage(collection string, records int, seconds float64) {
	DefaultMetrics.GraphPagesFetched.WithLabelValues(collection).Inc()
	DefaultMetrics.GraphRecordsFetched.WithLabelValues(collection).Add(float64(records))
	DefaultMetrics.GraphRequestLatency.WithLabelValues(collection).Observe(seconds)
}

// RecordGraphTruncated records a paginated fetch that stopped early.
func RecordGraphTruncated(collection, reason string) {
	DefaultMetrics.GraphFetchTruncated.WithLabelValues(collection, reason).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(pipeline, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(pipeline).Observe(durationSeconds)
}
