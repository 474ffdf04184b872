package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/schemagate/internal/event"
)

type fakeKafkaWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaDestination_Deliver(t *testing.T) {
	w := &fakeKafkaWriter{}
	d := NewKafkaDestinationWithWriter("dead_letter", "events-dlq", w)

	events := []*event.Event{
		{Event: "Signed Up", UserID: "u1", Properties: map[string]any{"schema_id": "s1"}},
		{Event: "Viewed", AnonymousID: "anon"},
	}
	require.NoError(t, d.Deliver(context.Background(), events))

	require.Len(t, w.written, 2)
	assert.Equal(t, "u1", string(w.written[0].Key))
	assert.Equal(t, "anon", string(w.written[1].Key))
	assert.Equal(t, "s1", header(w.written[0], "schema_id"))
	assert.Equal(t, "dead_letter", header(w.written[0], "sink"))
	assert.Contains(t, string(w.written[0].Value), `"event":"Signed Up"`)

	require.NoError(t, d.Close())
	assert.True(t, w.closed)
}

func TestKafkaDestination_EmptyIsNoop(t *testing.T) {
	w := &fakeKafkaWriter{err: errors.New("should not be called")}
	d := NewKafkaDestinationWithWriter("valid", "events", w)
	assert.NoError(t, d.Deliver(context.Background(), nil))
}

func TestKafkaDestination_WriteError(t *testing.T) {
	w := &fakeKafkaWriter{err: errors.New("leader not available")}
	d := NewKafkaDestinationWithWriter("valid", "events", w)

	err := d.Deliver(context.Background(), []*event.Event{{Event: "e"}})
	var de DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "valid", de.Sink)
	assert.Equal(t, CodeDeliveryFailed, de.Code)
}

func TestPartitionKey(t *testing.T) {
	tests := []struct {
		name string
		e    *event.Event
		want string
	}{
		{"user wins", &event.Event{UserID: "u1", AnonymousID: "a1", MessageID: "m1"}, "u1"},
		{"anonymous next", &event.Event{AnonymousID: "a1", MessageID: "m1"}, "a1"},
		{"message id last", &event.Event{MessageID: "m1"}, "m1"},
		{"nothing", &event.Event{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, partitionKey(tt.e))
		})
	}
}
