package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RouterMetrics tracks batch routing
type RouterMetrics struct {
	batchesTotal        *prometheus.CounterVec
	batchDuration       *prometheus.HistogramVec
	batchSize           *prometheus.HistogramVec
	eventsRoutedTotal   *prometheus.CounterVec
	validationDuration  *prometheus.HistogramVec
	validationErrsTotal *prometheus.CounterVec
}

// NewRouterMetrics initializes router metrics with the collector
func NewRouterMetrics(collector *Collector) *RouterMetrics {
	return &RouterMetrics{
		batchesTotal: collector.RegisterCounter(
			MetricBatchesTotal,
			"Total number of batches by outcome",
			[]string{LabelOutcome},
		),
		batchDuration: collector.RegisterHistogram(
			MetricBatchDuration,
			"Batch processing latency in seconds, including sink flushes",
			[]string{LabelOutcome},
			nil,
		),
		batchSize: collector.RegisterHistogram(
			MetricBatchSize,
			"Number of events per inbound batch",
			nil,
			prometheus.ExponentialBuckets(1, 2, 12),
		),
		eventsRoutedTotal: collector.RegisterCounter(
			MetricEventsRoutedTotal,
			"Total number of events routed by sink and classification state",
			[]string{LabelSink, LabelState},
		),
		validationDuration: collector.RegisterHistogram(
			MetricValidationDuration,
			"Per-event schema validation latency in seconds",
			nil,
			prometheus.ExponentialBuckets(0.0001, 4, 8),
		),
		validationErrsTotal: collector.RegisterCounter(
			MetricValidationErrsTotal,
			"Total number of individual schema violations reported",
			nil,
		),
	}
}

// RecordBatch records a finished batch
func (m *RouterMetrics) RecordBatch(outcome string, size int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(outcome).Inc()
	m.batchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.batchSize.WithLabelValues().Observe(float64(size))
}

// RecordRouted records one routing decision
func (m *RouterMetrics) RecordRouted(sink, state string) {
	if m == nil {
		return
	}
	m.eventsRoutedTotal.WithLabelValues(sink, state).Inc()
}

// RecordValidation records one validator invocation and the number of violations found
func (m *RouterMetrics) RecordValidation(duration time.Duration, violations int) {
	if m == nil {
		return
	}
	m.validationDuration.WithLabelValues().Observe(duration.Seconds())
	if violations > 0 {
		m.validationErrsTotal.WithLabelValues().Add(float64(violations))
	}
}
