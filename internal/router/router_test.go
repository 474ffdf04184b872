package router

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/metrics"
	"github.com/flowmesh/schemagate/internal/sink"
	"github.com/flowmesh/schemagate/internal/storage/schema"
	"github.com/flowmesh/schemagate/internal/storage/source"
	"github.com/flowmesh/schemagate/internal/test"
)

// countingSource serves schemas from a map and counts fetches
type countingSource struct {
	schemas map[string]string
	err     error
	calls   atomic.Int32
}

func (s *countingSource) Name() string { return "memory" }

func (s *countingSource) Fetch(ctx context.Context, schemaID string) ([]byte, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	def, ok := s.schemas[schemaID]
	if !ok {
		return nil, source.ErrNotFound
	}
	return []byte(def), nil
}

type harness struct {
	src   *countingSource
	valid *test.RecordingDestination
	dead  *test.RecordingDestination
	r     *Router
}

func newHarness(schemas map[string]string, opts ...Option) *harness {
	h := &harness{
		src:   &countingSource{schemas: schemas},
		valid: test.NewRecordingDestination(sink.NameValid),
		dead:  test.NewRecordingDestination(sink.NameDeadLetter),
	}
	validator := schema.NewValidator(schema.NewStore(h.src))
	h.r = New(validator, h.valid, h.dead, opts...)
	return h
}

const planSchema = `{"type":"object","properties":{"schema_id":{"type":"string"},"plan":{"type":"string"}},"required":["schema_id","plan"]}`

const planEmailSchema = `{"type":"object","properties":{"plan":{"type":"string"},"email":{"type":"string"}},"required":["plan","email"]}`

func batchOf(events ...*event.Event) *event.Batch {
	b := &event.Batch{Batch: events}
	b.Normalize()
	return b
}

func TestRouteBatch_ValidEvent(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
	e := &event.Event{Event: "Signed Up", Properties: map[string]any{"schema_id": "s1", "plan": "free"}}

	out, err := h.r.RouteBatch(context.Background(), batchOf(e))
	require.NoError(t, err)

	assert.Equal(t, 1, out.Received)
	assert.Equal(t, 1, out.Valid)
	assert.Equal(t, 0, out.Invalid)
	assert.NotEmpty(t, out.BatchID)
	require.Len(t, h.valid.Flushes(), 1)
	require.Len(t, h.valid.Flushes()[0], 1)
	assert.Same(t, e, h.valid.Flushes()[0][0])
	assert.NotContains(t, e.Properties, event.ValidationErrorsKey)

	require.Len(t, out.Decisions, 1)
	assert.Equal(t, StateValidated, out.Decisions[0].Check)
	assert.Equal(t, StateRoutedValid, out.Decisions[0].State)
	assert.True(t, out.Decisions[0].State.Terminal())
}

func TestRouteBatch_SchemaViolation(t *testing.T) {
	h := newHarness(map[string]string{"s1": planEmailSchema}, WithDebug(true))
	e := &event.Event{Event: "Signed Up", Properties: map[string]any{"schema_id": "s1", "plan": "free"}}

	out, err := h.r.RouteBatch(context.Background(), batchOf(e))
	require.NoError(t, err)

	assert.Equal(t, 1, out.Invalid)
	assert.Empty(t, h.valid.Events())
	require.Len(t, h.dead.Events(), 1)

	errs := e.ValidationErrors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "email")
	assert.Equal(t, out.Decisions[0].Errors, errs)
}

func TestRouteBatch_MissingSchemaID(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
	e := &event.Event{Event: "Signed Up", Properties: map[string]any{"plan": "free"}}

	out, err := h.r.RouteBatch(context.Background(), batchOf(e))
	require.NoError(t, err)

	assert.Equal(t, []string{"missing required property 'schema_id'"}, e.ValidationErrors())
	assert.Len(t, h.dead.Events(), 1)
	assert.Equal(t, int32(0), h.src.calls.Load())
	assert.Equal(t, StateMissingSchemaID, out.Decisions[0].Check)
	assert.Equal(t, StateRoutedInvalid, out.Decisions[0].State)
}

func TestRouteBatch_MissingSchemaIDNeverQueriesStore(t *testing.T) {
	h := newHarness(nil, WithDebug(true))

	events := []*event.Event{
		{Event: "a"},
		{Event: "b", Properties: map[string]any{"schema_id": ""}},
		{Event: "c", Properties: map[string]any{"schema_id": 7.0}},
		{Event: "d", Properties: map[string]any{"schema_id": nil}},
	}
	out, err := h.r.RouteBatch(context.Background(), batchOf(events...))
	require.NoError(t, err)

	assert.Equal(t, 4, out.Invalid)
	assert.Len(t, h.dead.Events(), 4)
	assert.Equal(t, int32(0), h.src.calls.Load())
}

func TestRouteBatch_StoreUnavailableAborts(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
	h.src.err = errors.New("dial tcp: connection refused")

	b := batchOf(
		&event.Event{Event: "no id"},
		&event.Event{Event: "Signed Up", Properties: map[string]any{"schema_id": "s1", "plan": "free"}},
		&event.Event{Event: "never reached", Properties: map[string]any{"schema_id": "s2"}},
	)
	out, err := h.r.RouteBatch(context.Background(), b)
	require.Error(t, err)
	assert.Nil(t, out)

	var be BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindSchemaStoreUnavailable, be.Kind)
	assert.NotEmpty(t, be.BatchID)
	assert.True(t, schema.IsUnavailable(err))

	assert.Empty(t, h.valid.Flushes())
	assert.Empty(t, h.dead.Flushes())
	assert.Equal(t, int32(1), h.src.calls.Load())
}

func TestRouteBatch_MixedBatchFlushesEachSinkOnce(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))

	out, err := h.r.RouteBatch(context.Background(), batchOf(
		&event.Event{Event: "ok", Properties: map[string]any{"schema_id": "s1", "plan": "free"}},
		&event.Event{Event: "bad", Properties: map[string]any{"schema_id": "s1", "plan": 3.0}},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, out.Valid)
	assert.Equal(t, 1, out.Invalid)
	require.Len(t, h.valid.Flushes(), 1)
	require.Len(t, h.dead.Flushes(), 1)
	assert.Len(t, h.valid.Flushes()[0], 1)
	assert.Len(t, h.dead.Flushes()[0], 1)
	assert.Equal(t, "bad", h.dead.Flushes()[0][0].Event)
}

func TestRouteBatch_FlushesOnceRegardlessOfSize(t *testing.T) {
	for _, n := range []int{0, 1, 25} {
		h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
		events := make([]*event.Event, n)
		for i := range events {
			events[i] = &event.Event{Properties: map[string]any{"schema_id": "s1", "plan": "p"}}
		}

		_, err := h.r.RouteBatch(context.Background(), batchOf(events...))
		require.NoError(t, err)
		assert.Len(t, h.valid.Flushes(), 1, "n=%d", n)
		assert.Len(t, h.dead.Flushes(), 1, "n=%d", n)
		assert.Len(t, h.valid.Events(), n)
	}
}

func TestRouteBatch_PreservesOrder(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
	var events []*event.Event
	for _, name := range []string{"a", "b", "c", "d"} {
		events = append(events, &event.Event{Event: name, Properties: map[string]any{"schema_id": "s1", "plan": "p"}})
	}

	out, err := h.r.RouteBatch(context.Background(), batchOf(events...))
	require.NoError(t, err)

	var names []string
	for _, e := range h.valid.Flushes()[0] {
		names = append(names, e.Event)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	for i, d := range out.Decisions {
		assert.Equal(t, i, d.Index)
	}
	// Schema fetched once for the whole batch
	assert.Equal(t, int32(1), h.src.calls.Load())
}

func TestRouteBatch_ViolationsSortedAndAttachedVerbatim(t *testing.T) {
	strict := `{"type":"object","properties":{"a":{"type":"string"},"b":{"type":"integer"},"c":{"minimum":10}},"required":["z","y"]}`
	h := newHarness(map[string]string{"s1": strict}, WithDebug(true))
	e := &event.Event{Properties: map[string]any{"schema_id": "s1", "a": 1.0, "b": "x", "c": 1.0}}

	out, err := h.r.RouteBatch(context.Background(), batchOf(e))
	require.NoError(t, err)

	errs := e.ValidationErrors()
	assert.GreaterOrEqual(t, len(errs), 4)
	assert.True(t, sort.StringsAreSorted(errs), errs)
	assert.Equal(t, out.Decisions[0].Errors, errs)
}

func TestRouteBatch_Timestamps(t *testing.T) {
	fixed := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	t.Run("missing outside debug", func(t *testing.T) {
		h := newHarness(map[string]string{"s1": planSchema})
		e := &event.Event{Properties: map[string]any{"schema_id": "s1", "plan": "p"}}

		out, err := h.r.RouteBatch(context.Background(), batchOf(e))
		require.NoError(t, err)
		assert.Equal(t, []string{"invalid or missing timestamp"}, e.ValidationErrors())
		assert.Equal(t, StateBadTimestamp, out.Decisions[0].Check)
		assert.Equal(t, int32(0), h.src.calls.Load())
	})

	t.Run("malformed even in debug", func(t *testing.T) {
		h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
		e := &event.Event{Timestamp: "last tuesday", Properties: map[string]any{"schema_id": "s1", "plan": "p"}}

		_, err := h.r.RouteBatch(context.Background(), batchOf(e))
		require.NoError(t, err)
		assert.Equal(t, []string{"invalid or missing timestamp"}, e.ValidationErrors())
		assert.Len(t, h.dead.Events(), 1)
	})

	t.Run("defaulted in debug", func(t *testing.T) {
		h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true), WithClock(func() time.Time { return fixed }))
		e := &event.Event{Properties: map[string]any{"schema_id": "s1", "plan": "p"}}

		_, err := h.r.RouteBatch(context.Background(), batchOf(e))
		require.NoError(t, err)
		assert.Equal(t, "2024-03-04T05:06:07Z", e.Timestamp)
		assert.Len(t, h.valid.Events(), 1)
	})

	t.Run("valid outside debug", func(t *testing.T) {
		h := newHarness(map[string]string{"s1": planSchema})
		e := &event.Event{Timestamp: "2024-03-04T05:06:07.123Z", Properties: map[string]any{"schema_id": "s1", "plan": "p"}}

		_, err := h.r.RouteBatch(context.Background(), batchOf(e))
		require.NoError(t, err)
		assert.Len(t, h.valid.Events(), 1)
	})
}

func TestRouteBatch_SchemaNotFoundDeadLetters(t *testing.T) {
	h := newHarness(nil, WithDebug(true))
	e := &event.Event{Properties: map[string]any{"schema_id": "gone/1-0.json"}}

	_, err := h.r.RouteBatch(context.Background(), batchOf(e))
	require.NoError(t, err)
	assert.Equal(t, []string{"schema not found: gone/1-0.json"}, e.ValidationErrors())
}

func TestRouteBatch_SinkErrorAfterBothFlushes(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
	h.valid.Err = sink.DeliveryError{Code: "http_400", Message: "bad write key"}
	h.dead.Err = errors.New("also broken")

	out, err := h.r.RouteBatch(context.Background(), batchOf(
		&event.Event{Properties: map[string]any{"schema_id": "s1", "plan": "p"}},
		&event.Event{Properties: map[string]any{}},
	))
	require.Error(t, err)

	var be BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindSinkDelivery, be.Kind)
	assert.Equal(t, sink.NameValid, be.Sink)
	assert.Equal(t, "http_400", be.Code)
	assert.Equal(t, "bad write key", be.Message)

	// Classification stands and both sinks were flushed
	require.NotNil(t, out)
	assert.Equal(t, 1, out.Valid)
	assert.Equal(t, 1, out.Invalid)
	assert.Len(t, h.valid.Flushes(), 1)
	assert.Len(t, h.dead.Flushes(), 1)
}

func TestRouteBatch_CanceledBeforeFlush(t *testing.T) {
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.r.RouteBatch(ctx, batchOf(&event.Event{Properties: map[string]any{"schema_id": "s1", "plan": "p"}}))
	require.Error(t, err)
	assert.Nil(t, out)

	var be BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindCanceled, be.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.valid.Flushes())
	assert.Empty(t, h.dead.Flushes())
}

func TestRouteBatch_SchemaFetchTimeoutIsInfrastructure(t *testing.T) {
	src := &countingSource{err: context.DeadlineExceeded}
	valid := test.NewRecordingDestination(sink.NameValid)
	dead := test.NewRecordingDestination(sink.NameDeadLetter)
	r := New(schema.NewValidator(schema.NewStore(src)), valid, dead, WithDebug(true))

	_, err := r.RouteBatch(context.Background(), batchOf(&event.Event{Properties: map[string]any{"schema_id": "s1"}}))
	var be BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindSchemaStoreUnavailable, be.Kind)
	assert.Empty(t, valid.Flushes())
}

func TestRouteBatch_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	m := metrics.New(collector)
	h := newHarness(map[string]string{"s1": planSchema}, WithDebug(true), WithMetrics(m.Router, m.Sink))

	_, err := h.r.RouteBatch(context.Background(), batchOf(
		&event.Event{Properties: map[string]any{"schema_id": "s1", "plan": "p"}},
		&event.Event{},
	))
	require.NoError(t, err)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	routed := map[string]float64{}
	for _, f := range families {
		if f.GetName() != metrics.MetricEventsRoutedTotal {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == metrics.LabelSink {
					routed[l.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, routed[sink.NameValid])
	assert.Equal(t, 1.0, routed[sink.NameDeadLetter])
}

func TestBatchError_Error(t *testing.T) {
	be := BatchError{Kind: KindSinkDelivery, BatchID: "b1", Sink: "valid", Code: "http_500", Message: "boom"}
	assert.Equal(t, "batch b1: sink_delivery on sink valid (http_500): boom", be.Error())

	be = BatchError{Kind: KindCanceled, BatchID: "b2", Message: "context canceled"}
	assert.Equal(t, "batch b2: canceled: context canceled", be.Error())
}
