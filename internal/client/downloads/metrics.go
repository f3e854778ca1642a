package downloads

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notekeeper_downloads_total",
		Help: "Note downloads by final outcome.",
	}, []string{"status"})
	downloadAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notekeeper_download_attempts_total",
		Help: "Individual download attempts, including retries.",
	})
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notekeeper_blob_cache_hits_total",
		Help: "Blob cache lookups that found an entry.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notekeeper_blob_cache_misses_total",
		Help: "Blob cache lookups that found nothing.",
	})
	cacheReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notekeeper_blob_cache_releases_total",
		Help: "Object URLs released by delete, expiry or capacity eviction.",
	})
)
