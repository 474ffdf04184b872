package metrics

// Metric name constants following Prometheus naming conventions
// Format: schemagate_{component}_{metric}_{unit}

// Router metrics
const (
	MetricBatchesTotal        = "schemagate_router_batches_total"
	MetricBatchDuration       = "schemagate_router_batch_duration_seconds"
	MetricBatchSize           = "schemagate_router_batch_size_events"
	MetricEventsRoutedTotal   = "schemagate_router_events_routed_total"
	MetricValidationDuration  = "schemagate_router_validation_duration_seconds"
	MetricValidationErrsTotal = "schemagate_router_validation_errors_total"
)

// Schema store metrics
const (
	MetricSchemaCacheHitsTotal   = "schemagate_schema_cache_hits_total"
	MetricSchemaCacheMissesTotal = "schemagate_schema_cache_misses_total"
	MetricSchemaCacheEntries     = "schemagate_schema_cache_entries"
	MetricSchemaFetchDuration    = "schemagate_schema_fetch_duration_seconds"
	MetricSchemaFetchTotal       = "schemagate_schema_fetch_total"
)

// Sink metrics
const (
	MetricSinkFlushDuration   = "schemagate_sink_flush_duration_seconds"
	MetricSinkEventsDelivered = "schemagate_sink_events_delivered_total"
	MetricSinkFlushErrors     = "schemagate_sink_flush_errors_total"
)

// API metrics
const (
	MetricAPIRequestsTotal   = "schemagate_api_requests_total"
	MetricAPIRequestDuration = "schemagate_api_request_duration_seconds"
)

// Label name constants
const (
	LabelSink     = "sink"
	LabelState    = "state"
	LabelOutcome  = "outcome"
	LabelSource   = "source"
	LabelStatus   = "status"
	LabelCode     = "code"
	LabelMethod   = "method"
	LabelEndpoint = "endpoint"
)

// Status label values
const (
	StatusOK          = "ok"
	StatusNotFound    = "not_found"
	StatusUnavailable = "unavailable"
	StatusError       = "error"
)
