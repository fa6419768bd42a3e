package versatiles

import (
	"log"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestServerMetricsRequestTracking(t *testing.T) {
	m := NewServerMetrics("metrics_test_requests", log.New(testWriter{t}, "", 0))

	tracker := m.startRequest()
	tracker.finish("demo", "hit")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("demo", "hit")))
}

func TestServerMetricsCacheAndBucketObservations(t *testing.T) {
	m := NewServerMetrics("metrics_test_cache", log.New(testWriter{t}, "", 0))

	m.recordCacheRequest("demo", "miss")
	m.recordCacheRequest("demo", "miss")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.tileIndexCacheRequests.WithLabelValues("demo", "miss")))

	m.observeBucketRequest("demo", "ok", 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.bucketRequestDuration))
}

func TestNewServerMetricsHandlesDuplicateRegistration(t *testing.T) {
	// Registering the same collector names twice must not panic; register()
	// logs the prometheus duplicate-registration error and returns the metric
	// unregistered-but-usable.
	NewServerMetrics("metrics_test_dup", log.New(testWriter{t}, "", 0))
	second := NewServerMetrics("metrics_test_dup", log.New(testWriter{t}, "", 0))

	second.recordCacheRequest("demo", "hit")
	assert.Equal(t, float64(1), testutil.ToFloat64(second.tileIndexCacheRequests.WithLabelValues("demo", "hit")))
}
