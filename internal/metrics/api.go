package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics tracks inbound API requests
type APIMetrics struct {
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
}

// NewAPIMetrics initializes API metrics with the collector
func NewAPIMetrics(collector *Collector) *APIMetrics {
	return &APIMetrics{
		apiRequestsTotal: collector.RegisterCounter(
			MetricAPIRequestsTotal,
			"Total HTTP requests by method, endpoint, and status",
			[]string{LabelMethod, LabelEndpoint, LabelStatus},
		),
		apiRequestDuration: collector.RegisterHistogram(
			MetricAPIRequestDuration,
			"API request latency in seconds",
			[]string{LabelMethod, LabelEndpoint},
			prometheus.DefBuckets,
		),
	}
}

// RecordAPIRequest records an API request
func (m *APIMetrics) RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.apiRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// Metrics bundles every recorder the service registers
type Metrics struct {
	Collector *Collector
	Router    *RouterMetrics
	Schema    *SchemaMetrics
	Sink      *SinkMetrics
	API       *APIMetrics
}

// New registers all service metrics on the collector
func New(collector *Collector) *Metrics {
	return &Metrics{
		Collector: collector,
		Router:    NewRouterMetrics(collector),
		Schema:    NewSchemaMetrics(collector),
		Sink:      NewSinkMetrics(collector),
		API:       NewAPIMetrics(collector),
	}
}
