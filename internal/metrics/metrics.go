// Package metrics exposes the application's Prometheus instrumentation
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huntarr_searches_total",
		Help: "Search operations by kind (auto, interactive, missing, cutoff)",
	}, []string{"kind"})

	ReleasesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huntarr_releases_found_total",
		Help: "Releases returned by indexer searches",
	})

	GrabsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huntarr_grabs_total",
		Help: "Grab attempts by outcome (success, conflict, error)",
	}, []string{"outcome"})

	DownloadsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huntarr_downloads_completed_total",
		Help: "Downloads that finished and imported successfully",
	})

	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huntarr_downloads_failed_total",
		Help: "Downloads that ended in failure",
	})

	RSSItemsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huntarr_rss_items_total",
		Help: "RSS feed items by disposition (new, duplicate, grabbed)",
	}, []string{"disposition"})

	IndexerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huntarr_indexer_errors_total",
		Help: "Indexer query failures by indexer name",
	}, []string{"indexer"})
)
