package router

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/schemagate/internal/tracing"
)

func startBatchSpan(ctx context.Context, batchID string, size int) (context.Context, trace.Span) {
	tracer := otel.Tracer("schemagate.router")
	return tracer.Start(ctx, "router.route_batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(tracing.AttrBatchID, batchID),
			attribute.Int(tracing.AttrBatchSize, size),
		),
	)
}

func endBatchSpan(span trace.Span, out *Outcome, err error) {
	span.SetAttributes(
		attribute.Int(tracing.AttrValidCount, out.Valid),
		attribute.Int(tracing.AttrInvalidCount, out.Invalid),
	)
	if be, ok := err.(BatchError); ok {
		span.SetAttributes(attribute.String(tracing.AttrErrorKind, string(be.Kind)))
	}
	tracing.EndSpan(span, err)
}
