package handlers

import (
	"net/http"

	"github.com/flowmesh/schemagate/internal/metrics"
)

// MetricsHandler serves Prometheus metrics from the collector's registry
func MetricsHandler(collector *metrics.Collector) http.Handler {
	if collector == nil {
		return http.NotFoundHandler()
	}
	return collector.Handler()
}
