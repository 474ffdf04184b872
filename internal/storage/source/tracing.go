package source

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/schemagate/internal/tracing"
)

func startFetchSpan(ctx context.Context, source, schemaID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("schemagate.source")
	ctx, span := tracer.Start(ctx, "schema.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrSchemaSource, source),
		attribute.String(tracing.AttrSchemaID, schemaID),
	)
	return ctx, span
}

func endFetchSpan(span trace.Span, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	tracing.EndSpan(span, err)
}
