// Package metrics defines the Prometheus metric collectors bdx exposes
// during indexing and query execution, and an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds bdx's Prometheus collectors.
type Metrics struct {
	FilesIndexedTotal    *prometheus.CounterVec
	SymbolsIndexedTotal  prometheus.Counter
	IndexRunDuration      prometheus.Histogram
	ShardsCommittedTotal prometheus.Counter
	ShardsGCedTotal      prometheus.Counter
	ActiveShards         prometheus.Gauge
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	GraphPathsFound      prometheus.Histogram
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates and registers bdx's Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		FilesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdx_files_indexed_total",
				Help: "Object files processed by the indexer, by outcome (added, changed, removed, error).",
			},
			[]string{"outcome"},
		),
		SymbolsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bdx_symbols_indexed_total",
				Help: "Total symbol records written across all committed shards.",
			},
		),
		IndexRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bdx_index_run_duration_seconds",
				Help:    "Wall-clock duration of a full index run.",
				Buckets: prometheus.DefBuckets,
			},
		),
		ShardsCommittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bdx_shards_committed_total",
				Help: "Total shards committed to the store.",
			},
		),
		ShardsGCedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bdx_shards_gced_total",
				Help: "Total shard directories removed as orphans or fully-superseded stale shards.",
			},
		),
		ActiveShards: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bdx_active_shards",
				Help: "Number of shards currently referenced by the manifest.",
			},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bdx_search_latency_seconds",
				Help:    "Query execution latency in seconds, by operation (search, count).",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bdx_search_results_count",
				Help:    "Number of records returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		GraphPathsFound: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bdx_graph_paths_found",
				Help:    "Number of reference paths found per graph query.",
				Buckets: []float64{0, 1, 2, 5, 10, 25},
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bdx_circuit_breaker_state",
				Help: "External collaborator circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.FilesIndexedTotal,
		m.SymbolsIndexedTotal,
		m.IndexRunDuration,
		m.ShardsCommittedTotal,
		m.ShardsGCedTotal,
		m.ActiveShards,
		m.SearchLatency,
		m.SearchResultsCount,
		m.GraphPathsFound,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
