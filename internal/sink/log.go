package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/jsoncodec"
	"github.com/flowmesh/schemagate/internal/logger"
)

// LogDestination writes events to the service log. Used for local
// development and as the default when no sink is configured.
type LogDestination struct {
	name string
	log  zerolog.Logger
}

// NewLogDestination creates a log destination
func NewLogDestination(name string) *LogDestination {
	return &LogDestination{
		name: name,
		log:  logger.WithComponent("sink").With().Str("sink", name).Logger(),
	}
}

// Name implements Destination
func (d *LogDestination) Name() string {
	return d.name
}

// Deliver implements Destination
func (d *LogDestination) Deliver(ctx context.Context, events []*event.Event) error {
	for _, e := range events {
		payload, err := jsoncodec.Marshal(e)
		if err != nil {
			return DeliveryError{Sink: d.name, Code: CodeEncode, Message: err.Error(), Err: err}
		}
		d.log.Info().
			Str("event", e.Event).
			Str("schema_id", e.SchemaID()).
			RawJSON("payload", payload).
			Msg("Event delivered")
	}
	return nil
}

// Close implements Destination
func (d *LogDestination) Close() error {
	return nil
}
