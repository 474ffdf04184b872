// Package router classifies each event of a batch against its schema and
// dispatches it to the valid or dead-letter sink.
package router

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/ids"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/metrics"
	"github.com/flowmesh/schemagate/internal/sink"
	"github.com/flowmesh/schemagate/internal/storage/schema"
)

// MsgInvalidTimestamp is attached to events whose timestamp is missing or unparseable
const MsgInvalidTimestamp = "invalid or missing timestamp"

// Batch outcome labels
const (
	outcomeOK          = "ok"
	outcomeUnavailable = "schema_store_unavailable"
	outcomeSinkError   = "sink_error"
	outcomeCanceled    = "canceled"
)

// Validator is the subset of schema.Validator used by the router
type Validator interface {
	Validate(ctx context.Context, schemaID string, properties map[string]any) (schema.Result, error)
}

// Router routes batches. It is safe for concurrent use as long as its
// destinations are.
type Router struct {
	validator    Validator
	valid        sink.Destination
	deadLetter   sink.Destination
	debug        bool
	flushTimeout time.Duration
	metrics      *metrics.RouterMetrics
	sinkMetrics  *metrics.SinkMetrics
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures a Router
type Option func(*Router)

// WithDebug substitutes the current time for absent timestamps
func WithDebug(debug bool) Option {
	return func(r *Router) { r.debug = debug }
}

// WithFlushTimeout bounds the combined sink flush
func WithFlushTimeout(d time.Duration) Option {
	return func(r *Router) { r.flushTimeout = d }
}

// WithMetrics records router and sink metrics
func WithMetrics(rm *metrics.RouterMetrics, sm *metrics.SinkMetrics) Option {
	return func(r *Router) {
		r.metrics = rm
		r.sinkMetrics = sm
	}
}

// WithClock overrides the time source used for debug timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a router
func New(validator Validator, valid, deadLetter sink.Destination, opts ...Option) *Router {
	r := &Router{
		validator:  validator,
		valid:      valid,
		deadLetter: deadLetter,
		now:        time.Now,
		log:        logger.WithComponent("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RouteBatch classifies every event in arrival order, then flushes both
// sinks exactly once. A schema store outage or a canceled context aborts
// the batch before anything is flushed. A flush failure is reported after
// both flushes were attempted, together with the outcome.
func (r *Router) RouteBatch(ctx context.Context, batch *event.Batch) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{
		BatchID:   ids.NewBatchID(),
		Received:  batch.Len(),
		Decisions: make([]Decision, 0, batch.Len()),
	}
	log := r.log.With().Str("batch_id", out.BatchID).Logger()

	ctx, span := startBatchSpan(ctx, out.BatchID, out.Received)

	validBuf := sink.NewBuffer(r.valid, r.sinkMetrics)
	deadBuf := sink.NewBuffer(r.deadLetter, r.sinkMetrics)

	for i, e := range batch.Batch {
		if err := ctx.Err(); err != nil {
			return r.abort(span, out, start, KindCanceled, err)
		}

		d, err := r.classify(ctx, i, e)
		if err != nil {
			kind := KindSchemaStoreUnavailable
			if ctx.Err() != nil {
				kind = KindCanceled
			}
			return r.abort(span, out, start, kind, err)
		}

		if d.State == StateRoutedValid {
			validBuf.Enqueue(e)
			out.Valid++
		} else {
			e.SetValidationErrors(d.Errors)
			deadBuf.Enqueue(e)
			out.Invalid++
			log.Debug().
				Int("index", i).
				Str("schema_id", e.SchemaID()).
				Str("check", string(d.Check)).
				Strs("errors", d.Errors).
				Msg("Event dead-lettered")
		}
		r.metrics.RecordRouted(sinkFor(d.State), string(d.Check))
		out.Decisions = append(out.Decisions, d)
	}

	if err := ctx.Err(); err != nil {
		return r.abort(span, out, start, KindCanceled, err)
	}

	if failed := r.flush(ctx, validBuf, deadBuf); failed != nil {
		be := *failed
		be.BatchID = out.BatchID
		log.Error().
			Str("sink", be.Sink).
			Str("code", be.Code).
			Str("message", be.Message).
			Msg("Sink delivery failed")
		r.metrics.RecordBatch(outcomeSinkError, out.Received, time.Since(start))
		endBatchSpan(span, out, be)
		return out, be
	}

	r.metrics.RecordBatch(outcomeOK, out.Received, time.Since(start))
	endBatchSpan(span, out, nil)
	log.Info().
		Int("received", out.Received).
		Int("valid", out.Valid).
		Int("invalid", out.Invalid).
		Dur("duration", time.Since(start)).
		Msg("Batch routed")
	return out, nil
}

// classify runs the per-event checks. Only infrastructure failures are
// returned as errors.
func (r *Router) classify(ctx context.Context, index int, e *event.Event) (Decision, error) {
	d := Decision{Index: index, Event: e, Check: StateReceived}
	schemaID := e.SchemaID()

	if !r.timestampOK(e) {
		d.Check = StateBadTimestamp
		d.State = StateRoutedInvalid
		d.Errors = []string{MsgInvalidTimestamp}
		return d, nil
	}

	d.Check = StateValidated
	if schemaID == "" {
		d.Check = StateMissingSchemaID
	}

	start := time.Now()
	res, err := r.validator.Validate(ctx, schemaID, e.Properties)
	if err != nil {
		return d, err
	}
	r.metrics.RecordValidation(time.Since(start), len(res.Errors))

	if res.Valid {
		d.State = StateRoutedValid
		return d, nil
	}
	d.State = StateRoutedInvalid
	d.Errors = res.Errors
	return d, nil
}

func (r *Router) timestampOK(e *event.Event) bool {
	if !e.HasTimestamp() {
		if r.debug {
			e.SetTimestamp(r.now())
			return true
		}
		return false
	}
	_, err := e.ParseTimestamp()
	return err == nil
}

// flush flushes both buffers, attempting the second even if the first
// fails, and returns the first failure.
func (r *Router) flush(ctx context.Context, bufs ...*sink.Buffer) *BatchError {
	if r.flushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.flushTimeout)
		defer cancel()
	}

	var first *BatchError
	for _, buf := range bufs {
		err := buf.Flush(ctx)
		if err == nil {
			continue
		}
		de := sink.AsDeliveryError(buf.Name(), err)
		r.log.Warn().Err(err).Str("sink", de.Sink).Msg("Flush failed")
		if first == nil {
			first = &BatchError{
				Kind:    KindSinkDelivery,
				Sink:    de.Sink,
				Code:    de.Code,
				Message: de.Message,
				Err:     de,
			}
		}
	}
	return first
}

func (r *Router) abort(span trace.Span, out *Outcome, start time.Time, kind Kind, err error) (*Outcome, error) {
	be := BatchError{Kind: kind, BatchID: out.BatchID, Message: err.Error(), Err: err}

	outcome := outcomeUnavailable
	if kind == KindCanceled {
		outcome = outcomeCanceled
	}
	r.metrics.RecordBatch(outcome, out.Received, time.Since(start))
	r.log.Error().Err(err).Str("batch_id", out.BatchID).Str("kind", string(kind)).Msg("Batch aborted, nothing flushed")
	endBatchSpan(span, out, be)
	return nil, be
}

func sinkFor(s State) string {
	if s == StateRoutedValid {
		return sink.NameValid
	}
	return sink.NameDeadLetter
}
