package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchemaMetrics tracks the schema store cache and its backing source
type SchemaMetrics struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheEntries  *prometheus.GaugeVec
	fetchDuration *prometheus.HistogramVec
	fetchTotal    *prometheus.CounterVec
}

// NewSchemaMetrics initializes schema store metrics with the collector
func NewSchemaMetrics(collector *Collector) *SchemaMetrics {
	return &SchemaMetrics{
		cacheHits: collector.RegisterCounter(
			MetricSchemaCacheHitsTotal,
			"Schema lookups served from the in-memory cache",
			nil,
		),
		cacheMisses: collector.RegisterCounter(
			MetricSchemaCacheMissesTotal,
			"Schema lookups that required a backing source fetch",
			nil,
		),
		cacheEntries: collector.RegisterGauge(
			MetricSchemaCacheEntries,
			"Number of schemas held in the in-memory cache",
			nil,
		),
		fetchDuration: collector.RegisterHistogram(
			MetricSchemaFetchDuration,
			"Backing source fetch latency in seconds",
			[]string{LabelSource},
			nil,
		),
		fetchTotal: collector.RegisterCounter(
			MetricSchemaFetchTotal,
			"Backing source fetches by status",
			[]string{LabelSource, LabelStatus},
		),
	}
}

// RecordCacheHit increments the cache hit counter
func (m *SchemaMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues().Inc()
}

// RecordCacheMiss increments the cache miss counter
func (m *SchemaMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues().Inc()
}

// SetCacheEntries updates the cache size gauge
func (m *SchemaMetrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.WithLabelValues().Set(float64(n))
}

// RecordFetch records one backing source fetch
func (m *SchemaMetrics) RecordFetch(source, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.fetchTotal.WithLabelValues(source, status).Inc()
}
