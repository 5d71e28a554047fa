package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(archiveBuildsTotal, archiveBytes, objectFetchSeconds) }

var archiveBuildsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "archive_builds_total",
		Help: "Archive deliveries by mode and result.",
	},
	[]string{"mode", "result"},
)

var archiveBytes = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "archive_source_bytes",
		Help:    "Total size of the objects packed into one archive.",
		Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1MiB .. 2GiB
	},
)

var objectFetchSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "object_fetch_seconds",
		Help:    "Latency of a single object retrieval from the store.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"success"},
)

func IncArchiveBuild(mode, result string) {
	archiveBuildsTotal.WithLabelValues(norm(mode), norm(result)).Inc()
}

func ObserveArchiveBytes(n int64) { archiveBytes.Observe(float64(n)) }

func ObserveObjectFetch(d time.Duration, ok bool) {
	s := "false"
	if ok {
		s = "true"
	}
	objectFetchSeconds.WithLabelValues(s).Observe(d.Seconds())
}
