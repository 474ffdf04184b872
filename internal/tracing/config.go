package tracing

// TracingConfig holds configuration for OpenTelemetry tracing
type TracingConfig struct {
	// Enabled enables/disables tracing
	Enabled bool

	// ServiceName is the service name for traces
	ServiceName string

	// ServiceVersion is the service version
	ServiceVersion string

	// Endpoint is the OTLP endpoint (host:port)
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// Headers contains additional headers for OTLP export
	Headers map[string]string

	// ExporterType specifies the exporter type: "grpc" or "http"
	ExporterType string

	// SamplingRate is the percentage of root traces to keep (0-100)
	SamplingRate float64

	// Deployment shape, exported as resource attributes
	SchemaSource   string
	ValidSink      string
	DeadLetterSink string
	Debug          bool
}

// DefaultTracingConfig returns a default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:      false,
		ServiceName:  "schemagate",
		Headers:      make(map[string]string),
		ExporterType: "grpc",
		SamplingRate: 100,
	}
}

// samplingRatio converts the configured percentage into a ratio in [0, 1]
func (c TracingConfig) samplingRatio() float64 {
	switch {
	case c.SamplingRate <= 0:
		return 0
	case c.SamplingRate >= 100:
		return 1
	default:
		return c.SamplingRate / 100
	}
}
