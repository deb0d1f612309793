// Package metrics provides Prometheus metrics for the reader feature.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts feed fetches by outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedreader",
			Name:      "fetch_total",
			Help:      "Total number of feed fetches",
		},
		[]string{"status"},
	)

	// FetchDuration measures how long a single feed fetch takes.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "feedreader",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of feed fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ArticlesIngested counts newly stored articles.
	ArticlesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feedreader",
			Name:      "articles_ingested_total",
			Help:      "Total number of articles stored by ingest",
		},
	)

	// DuplicatesSkipped counts candidates that matched a known article.
	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feedreader",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of candidate entries skipped as already known",
		},
	)

	// ArticlesPurged counts read articles removed by purge.
	ArticlesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feedreader",
			Name:      "articles_purged_total",
			Help:      "Total number of read articles deleted by purge",
		},
	)

	// JobRuns counts scheduler job runs by job and outcome.
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedreader",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)
)

// RecordFetch records the outcome of one feed fetch.
func RecordFetch(status string, seconds float64) {
	FetchTotal.WithLabelValues(status).Inc()
	FetchDuration.Observe(seconds)
}

// RecordIngest records an ingest run.
func RecordIngest(inserted, skipped int) {
	ArticlesIngested.Add(float64(inserted))
	DuplicatesSkipped.Add(float64(skipped))
}

// RecordJob records a scheduler job run.
func RecordJob(job string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	JobRuns.WithLabelValues(job, status).Inc()
}
