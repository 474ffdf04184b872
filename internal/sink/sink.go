// Package sink delivers routed events to their downstream destinations.
package sink

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/metrics"
	"github.com/flowmesh/schemagate/internal/tracing"
)

// Destination delivers a slice of events in one blocking call. It is shared
// by concurrent batches and must be safe for concurrent use. Deliver with an
// empty slice is a no-op.
type Destination interface {
	Name() string
	Deliver(ctx context.Context, events []*event.Event) error
	Close() error
}

// Buffer collects one batch's events for a destination. It is not safe for
// concurrent use; each batch gets its own.
type Buffer struct {
	dest    Destination
	events  []*event.Event
	metrics *metrics.SinkMetrics
}

// NewBuffer creates an empty buffer over dest. m may be nil.
func NewBuffer(dest Destination, m *metrics.SinkMetrics) *Buffer {
	return &Buffer{dest: dest, metrics: m}
}

// Name returns the destination name
func (b *Buffer) Name() string {
	return b.dest.Name()
}

// Enqueue appends e without blocking
func (b *Buffer) Enqueue(e *event.Event) {
	b.events = append(b.events, e)
}

// Len returns the number of buffered events
func (b *Buffer) Len() int {
	return len(b.events)
}

// Flush delivers every buffered event in one Deliver call and empties the
// buffer. Failed events are not re-queued. Errors are DeliveryError values.
func (b *Buffer) Flush(ctx context.Context) error {
	events := b.events
	b.events = nil

	ctx, span := otel.Tracer("schemagate.sink").Start(ctx, "sink.flush",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String(tracing.AttrSinkName, b.dest.Name()),
			attribute.Int(tracing.AttrSinkEvents, len(events)),
		),
	)

	start := time.Now()
	err := b.dest.Deliver(ctx, events)
	elapsed := time.Since(start)

	if err != nil {
		de := AsDeliveryError(b.dest.Name(), err)
		b.metrics.RecordFlushError(b.dest.Name(), de.Code, elapsed)
		tracing.EndSpan(span, de)
		return de
	}

	b.metrics.RecordFlush(b.dest.Name(), len(events), elapsed)
	tracing.EndSpan(span, nil)
	return nil
}
