// Package metrics defines the Prometheus instruments exported by the
// analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankflow_analyses_total",
			Help: "Total number of analyses run",
		},
		[]string{"mode", "status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bankflow_analysis_duration_seconds",
			Help:    "Duration of a full analysis in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Correlation metrics
	RowsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankflow_rows_processed_total",
			Help: "Total transaction rows processed",
		},
	)

	RowsMatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankflow_rows_matched_total",
			Help: "Total transaction rows matched to at least one login",
		},
	)

	MultiIPRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankflow_multi_ip_rows_total",
			Help: "Total transaction rows matched to more than one login",
		},
	)

	// Whois metrics
	WhoisLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bankflow_whois_lookups_total",
			Help: "Total whois lookups by outcome",
		},
		[]string{"outcome"},
	)

	WhoisCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankflow_whois_cache_hits_total",
			Help: "Total whois lookups answered from the in-memory cache",
		},
	)

	WhoisCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankflow_whois_cache_misses_total",
			Help: "Total whois lookups that required a network query",
		},
	)

	// Report metrics
	ReportsExportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bankflow_reports_exported_total",
			Help: "Total reports exported",
		},
	)

	ReportBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bankflow_report_bytes",
			Help:    "Size of exported reports in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)
