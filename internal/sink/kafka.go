package sink

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/jsoncodec"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/tracing"
)

// KafkaWriter is the subset of kafka.Writer used by KafkaDestination
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDestination writes each event as one message on a topic, keyed by
// the event's user (or anonymous) id so a user's events share a partition.
type KafkaDestination struct {
	name   string
	topic  string
	writer KafkaWriter
	log    zerolog.Logger
}

// NewKafkaDestination creates a destination with its own kafka.Writer
func NewKafkaDestination(name string, brokers []string, topic string) *KafkaDestination {
	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	d := NewKafkaDestinationWithWriter(name, topic, writer)
	d.log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("Kafka sink initialized")
	return d
}

// NewKafkaDestinationWithWriter creates a destination over an existing writer
func NewKafkaDestinationWithWriter(name, topic string, writer KafkaWriter) *KafkaDestination {
	return &KafkaDestination{
		name:   name,
		topic:  topic,
		writer: writer,
		log:    logger.WithComponent("sink").With().Str("sink", name).Logger(),
	}
}

// Name implements Destination
func (d *KafkaDestination) Name() string {
	return d.name
}

// Deliver implements Destination
func (d *KafkaDestination) Deliver(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	trace := map[string]string{}
	tracing.InjectToHeaders(ctx, trace)

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		payload, err := jsoncodec.Marshal(e)
		if err != nil {
			return DeliveryError{Sink: d.name, Code: CodeEncode, Message: err.Error(), Err: err}
		}

		headers := []kafka.Header{
			{Key: "event", Value: []byte(e.Event)},
			{Key: "schema_id", Value: []byte(e.SchemaID())},
			{Key: "sink", Value: []byte(d.name)},
		}
		for k, v := range trace {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}

		msgs = append(msgs, kafka.Message{
			Key:     []byte(partitionKey(e)),
			Value:   payload,
			Headers: headers,
		})
	}

	if err := d.writer.WriteMessages(ctx, msgs...); err != nil {
		d.log.Error().Err(err).Str("topic", d.topic).Int("events", len(events)).Msg("Failed to write to Kafka")
		return AsDeliveryError(d.name, err)
	}
	return nil
}

// Close implements Destination
func (d *KafkaDestination) Close() error {
	return d.writer.Close()
}

// partitionKey keeps one user's events on one partition: userId, then
// anonymousId, then messageId.
func partitionKey(e *event.Event) string {
	if e.UserID != "" {
		return e.UserID
	}
	if e.AnonymousID != "" {
		return e.AnonymousID
	}
	return e.MessageID
}
