// Package metrics defines Prometheus collectors of pipeline stages.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for metric outcome labels.
const (
	Fail    = "fail"
	Ok      = "ok"
	Skipped = "skipped"
)

// Collectors of pipeline stages, external programs and the store.
var (
	StageDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoload_stage_duration_seconds",
		Help:    "Duration of completed pipeline stages.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1s => ~3 days.
	}, []string{"stage", "status"})
	DownloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoload_download_bytes_total",
		Help: "Cumulative number of extract bytes downloaded.",
	})
	DownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoload_downloads_total",
		Help: "Cumulative number of resolved remote extracts.",
	}, []string{"status"})
	EnrichmentJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoload_enrichment_jobs_total",
		Help: "Cumulative number of completed enrichment jobs.",
	}, []string{"table", "status"})
	EnrichedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoload_enriched_rows_total",
		Help: "Cumulative number of rows updated by enrichment jobs.",
	}, []string{"table"})
	ReplicationCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoload_replication_cycles_total",
		Help: "Cumulative number of replication update cycles.",
	}, []string{"status"})
)

// GeoloadCollectors returns all collectors of this package.
func GeoloadCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		StageDurationSeconds,
		DownloadBytesTotal,
		DownloadsTotal,
		EnrichmentJobsTotal,
		EnrichedRowsTotal,
		ReplicationCyclesTotal,
	}
}
