package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flowmesh/schemagate/internal/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// Provider owns the process tracer provider. A disabled Provider hands out
// no-op tracers and has nothing to flush.
type Provider struct {
	tp     trace.TracerProvider
	sdk    *sdktrace.TracerProvider
	config TracingConfig
	log    zerolog.Logger
}

// NewProvider builds an OTLP-backed provider and installs it, with the
// W3C trace-context and baggage propagators, as the otel globals.
func NewProvider(ctx context.Context, config TracingConfig) (*Provider, error) {
	p := &Provider{
		tp:     noop.NewTracerProvider(),
		config: config,
		log:    logger.WithComponent("tracing"),
	}
	if !config.Enabled {
		return p, nil
	}
	if config.Endpoint == "" {
		return nil, fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(resourceAttributes(config)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	p.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.samplingRatio()))),
	)
	p.tp = p.sdk

	otel.SetTracerProvider(p.sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.log.Info().
		Str("endpoint", config.Endpoint).
		Str("exporter", exporterType(config)).
		Str("schema_source", config.SchemaSource).
		Str("valid_sink", config.ValidSink).
		Str("dead_letter_sink", config.DeadLetterSink).
		Float64("sampling_rate", config.SamplingRate).
		Msg("Tracing enabled")

	return p, nil
}

// resourceAttributes describes this router deployment: which schema source
// it reads and where each side of the split goes.
func resourceAttributes(c TracingConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(c.ServiceName),
		attribute.Bool(AttrDebug, c.Debug),
	}
	if c.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(c.ServiceVersion))
	}
	if c.SchemaSource != "" {
		attrs = append(attrs, attribute.String(AttrSchemaSource, c.SchemaSource))
	}
	if c.ValidSink != "" {
		attrs = append(attrs, attribute.String(AttrValidSinkType, c.ValidSink))
	}
	if c.DeadLetterSink != "" {
		attrs = append(attrs, attribute.String(AttrDeadLetterSinkType, c.DeadLetterSink))
	}
	return attrs
}

func exporterType(c TracingConfig) string {
	if c.ExporterType == "" {
		return "grpc"
	}
	return strings.ToLower(c.ExporterType)
}

func newExporter(ctx context.Context, c TracingConfig) (sdktrace.SpanExporter, error) {
	switch exporterType(c) {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.Endpoint)}
		if c.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(c.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(c.Headers))
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC OTLP exporter: %w", err)
		}
		return exp, nil
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Endpoint)}
		if c.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(c.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(c.Headers))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP OTLP exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown tracing exporter: %s", c.ExporterType)
	}
}

// Tracer returns a named tracer, a no-op one when tracing is disabled
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Shutdown flushes buffered spans. Without a deadline on ctx it waits at
// most five seconds.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}

	if err := p.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	p.log.Info().Msg("Tracing provider shut down")
	return nil
}

// Enabled reports whether spans are exported
func (p *Provider) Enabled() bool {
	return p.sdk != nil
}
