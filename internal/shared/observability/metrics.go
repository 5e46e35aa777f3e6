package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knip_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "knip_graph_nodes_total",
		Help: "Total number of file nodes in the dependency graph.",
	})

	GraphMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knip_graph_import_merges_total",
		Help: "Total number of import detail merges applied to the graph.",
	})

	IgnoreFilesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knip_ignore_files_parsed_total",
		Help: "Total number of ignore files parsed.",
	})

	IgnorePatterns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "knip_ignore_patterns",
		Help: "Number of aggregate ignore and unignore patterns in the current session.",
	}, []string{"kind"})

	GlobQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knip_glob_queries_total",
		Help: "Total number of file enumeration queries.",
	}, []string{"label"})

	GlobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knip_glob_seconds",
		Help:    "Time spent enumerating files for a query.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knip_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	FilesAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knip_files_analyzed_total",
		Help: "Total number of files handed to the parser, by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "knip_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
