package tracing

// Span attribute keys
const (
	AttrBatchID      = "schemagate.batch.id"
	AttrBatchSize    = "schemagate.batch.size"
	AttrValidCount   = "schemagate.batch.valid"
	AttrInvalidCount = "schemagate.batch.invalid"
	AttrSchemaID     = "schemagate.schema.id"
	AttrSchemaSource = "schemagate.schema.source"
	AttrCacheHit     = "schemagate.schema.cache_hit"
	AttrSinkName     = "schemagate.sink.name"
	AttrSinkEvents   = "schemagate.sink.events"
	AttrErrorKind    = "schemagate.error.kind"

	// Resource attributes
	AttrValidSinkType      = "schemagate.sink.valid.type"
	AttrDeadLetterSinkType = "schemagate.sink.dead_letter.type"
	AttrDebug              = "schemagate.debug"

	// HTTP attributes (OpenTelemetry semantic conventions)
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"

	// RPC attributes
	AttrRPCMethod = "rpc.method"
	AttrRPCStatus = "rpc.grpc.status_code"
)
