package versatiles

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// register is a small generic wrapper mirroring the teacher's register[K]
// helper: log a registration failure instead of panicking (duplicate
// registration is common in tests that build more than one ServerMetrics).
func register[K prometheus.Collector](logger *log.Logger, metric K) K {
	if err := prometheus.Register(metric); err != nil {
		logger.Println(err)
	}
	return metric
}

// ServerMetrics is the serving adapter's local observability surface: cache
// hit/miss on the per-block TileIndex lookup, and bucket/transport request
// latency. Carried even though the spec's Non-goals exclude distributed
// serving — this instruments the local read path, not a distributed system.
type ServerMetrics struct {
	requests               *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	tileIndexCacheRequests *prometheus.CounterVec
	bucketRequestDuration  *prometheus.HistogramVec
}

// NewServerMetrics registers and returns a fresh metrics set under the given scope.
func NewServerMetrics(scope string, logger *log.Logger) *ServerMetrics {
	if logger == nil {
		logger = log.Default()
	}
	const namespace = "versatiles"
	return &ServerMetrics{
		requests: register(logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: scope,
			Name:      "requests_total",
			Help:      "Number of tile requests served, by archive and status",
		}, []string{"archive", "status"})),
		requestDuration: register(logger, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: scope,
			Name:      "request_duration_seconds",
			Help:      "Tile request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"archive", "status"})),
		tileIndexCacheRequests: register(logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: scope,
			Name:      "tile_index_cache_requests_total",
			Help:      "Per-block TileIndex cache lookups, by hit/miss",
		}, []string{"archive", "status"})),
		bucketRequestDuration: register(logger, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: scope,
			Name:      "bucket_request_duration_seconds",
			Help:      "Duration of individual range requests to the backing transport",
			Buckets:   prometheus.DefBuckets,
		}, []string{"archive", "status"})),
	}
}

// requestTracker times one tile request from resolution to response.
type requestTracker struct {
	start   time.Time
	metrics *ServerMetrics
}

func (m *ServerMetrics) startRequest() *requestTracker {
	return &requestTracker{start: time.Now(), metrics: m}
}

func (t *requestTracker) finish(archive, status string) {
	t.metrics.requests.WithLabelValues(archive, status).Inc()
	t.metrics.requestDuration.WithLabelValues(archive, status).Observe(time.Since(t.start).Seconds())
}

func (m *ServerMetrics) recordCacheRequest(archive, status string) {
	m.tileIndexCacheRequests.WithLabelValues(archive, status).Inc()
}

func (m *ServerMetrics) observeBucketRequest(archive, status string, d time.Duration) {
	m.bucketRequestDuration.WithLabelValues(archive, status).Observe(d.Seconds())
}
