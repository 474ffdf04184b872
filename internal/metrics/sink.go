package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SinkMetrics tracks deliveries to the valid and dead-letter destinations
type SinkMetrics struct {
	flushDuration   *prometheus.HistogramVec
	eventsDelivered *prometheus.CounterVec
	flushErrors     *prometheus.CounterVec
}

// NewSinkMetrics initializes sink metrics with the collector
func NewSinkMetrics(collector *Collector) *SinkMetrics {
	return &SinkMetrics{
		flushDuration: collector.RegisterHistogram(
			MetricSinkFlushDuration,
			"Sink flush latency in seconds",
			[]string{LabelSink},
			nil,
		),
		eventsDelivered: collector.RegisterCounter(
			MetricSinkEventsDelivered,
			"Events successfully delivered per sink",
			[]string{LabelSink},
		),
		flushErrors: collector.RegisterCounter(
			MetricSinkFlushErrors,
			"Failed sink flushes by error code",
			[]string{LabelSink, LabelCode},
		),
	}
}

// RecordFlush records a successful flush of n events
func (m *SinkMetrics) RecordFlush(sink string, n int, duration time.Duration) {
	if m == nil {
		return
	}
	m.flushDuration.WithLabelValues(sink).Observe(duration.Seconds())
	m.eventsDelivered.WithLabelValues(sink).Add(float64(n))
}

// RecordFlushError records a failed flush
func (m *SinkMetrics) RecordFlushError(sink, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.flushDuration.WithLabelValues(sink).Observe(duration.Seconds())
	m.flushErrors.WithLabelValues(sink, code).Inc()
}
