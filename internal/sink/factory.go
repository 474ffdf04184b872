package sink

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/flowmesh/schemagate/internal/awsconf"
	"github.com/flowmesh/schemagate/internal/config"
)

// Sink names
const (
	NameValid      = "valid"
	NameDeadLetter = "dead_letter"
)

// BuildOptions carries in-process dependencies for Build
type BuildOptions struct {
	// GoChannel backs channel sinks
	GoChannel *gochannel.GoChannel
}

// Build creates the destination described by sc
func Build(ctx context.Context, name string, sc config.SinkConfig, cfg *config.Config, opts BuildOptions) (Destination, error) {
	shared := cfg.Sinks
	client := &http.Client{Timeout: shared.Timeout}

	switch strings.ToLower(sc.Type) {
	case config.SinkSegment:
		return NewSegmentDestination(SegmentConfig{
			Name:       name,
			Endpoint:   shared.SegmentEndpoint,
			WriteKey:   sc.WriteKey,
			MaxRetries: shared.MaxRetries,
			Client:     client,
		}), nil
	case config.SinkKafka:
		return NewKafkaDestination(name, shared.KafkaBrokers, sc.Topic), nil
	case config.SinkNATS:
		return NewNATSDestination(name, shared.NATSURL, sc.Topic)
	case config.SinkAMQP:
		return NewAMQPDestination(name, shared.AMQPURL, sc.Topic)
	case config.SinkSNS:
		awsCfg, err := awsconf.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return NewSNSDestination(name, awsCfg, awsconf.AccountID(cfg.AWS), sc.Topic)
	case config.SinkHTTP:
		return NewHTTPDestination(name, shared.HTTPSinkURL, sc.Topic, client)
	case config.SinkChannel:
		if opts.GoChannel == nil {
			return nil, fmt.Errorf("%s sink: channel sink requires an in-process pub/sub", name)
		}
		return NewChannelDestination(name, sc.Topic, opts.GoChannel), nil
	case config.SinkLog, "":
		return NewLogDestination(name), nil
	default:
		return nil, fmt.Errorf("%s sink: unknown type %q", name, sc.Type)
	}
}
