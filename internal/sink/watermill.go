package sink

import (
	"context"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/aws/aws-sdk-go-v2/aws"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/ids"
	"github.com/flowmesh/schemagate/internal/jsoncodec"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/tracing"
)

// Publisher factories, overridable in tests
var (
	NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nats.NewPublisher(cfg, logger)
	}

	AMQPPublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return amqp.NewPublisher(cfg, logger)
	}

	SNSPublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return sns.NewPublisher(cfg, logger)
	}

	HTTPPublisherFactory = func(cfg http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return http.NewPublisher(cfg, logger)
	}

	// TopicResolverFactory builds SNS topic ARNs from account and region
	TopicResolverFactory = sns.NewGenerateArnTopicResolver
)

// Message metadata keys
const (
	MetadataEvent    = "event"
	MetadataSchemaID = "schema_id"
	MetadataSink     = "sink"
)

// WatermillDestination publishes each event as a Watermill message on a
// single topic. It backs the nats, amqp, sns, http and channel sink types.
type WatermillDestination struct {
	name      string
	topic     string
	publisher message.Publisher
	log       zerolog.Logger
}

// NewWatermillDestination wraps an existing publisher
func NewWatermillDestination(name, topic string, publisher message.Publisher) *WatermillDestination {
	return &WatermillDestination{
		name:      name,
		topic:     topic,
		publisher: publisher,
		log:       logger.WithComponent("sink").With().Str("sink", name).Logger(),
	}
}

// NewNATSDestination publishes to a NATS subject
func NewNATSDestination(name, url, subject string) (*WatermillDestination, error) {
	pub, err := NATSPublisherFactory(nats.PublisherConfig{
		URL:         url,
		Marshaler:   &nats.NATSMarshaler{},
		JetStream:   nats.JetStreamConfig{Disabled: true},
		NatsOptions: []natsgo.Option{
			natsgo.Name("schemagate-" + name),
			natsgo.MaxReconnects(-1),
			natsgo.ReconnectWait(2 * time.Second),
		},
	}, logger.NewWatermillAdapter("sink-nats"))
	if err != nil {
		return nil, err
	}
	return NewWatermillDestination(name, subject, pub), nil
}

// NewAMQPDestination publishes to a durable AMQP exchange named after topic
func NewAMQPDestination(name, url, topic string) (*WatermillDestination, error) {
	cfg := amqp.NewDurablePubSubConfig(url, amqp.GenerateQueueNameTopicName)
	pub, err := AMQPPublisherFactory(cfg, logger.NewWatermillAdapter("sink-amqp"))
	if err != nil {
		return nil, err
	}
	return NewWatermillDestination(name, topic, pub), nil
}

// NewSNSDestination publishes to the SNS topic named topic in accountID/region
func NewSNSDestination(name string, awsCfg aws.Config, accountID, topic string) (*WatermillDestination, error) {
	resolver, err := TopicResolverFactory(accountID, awsCfg.Region)
	if err != nil {
		return nil, err
	}

	pubCfg := sns.PublisherConfig{
		TopicResolver: resolver,
		AWSConfig:     awsCfg,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}
	// LocalStack and other custom endpoints
	if awsCfg.BaseEndpoint != nil {
		endpoint := *awsCfg.BaseEndpoint
		pubCfg.OptFns = []func(*amazonsns.Options){
			func(o *amazonsns.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			},
		}
	}

	pub, err := SNSPublisherFactory(pubCfg, logger.NewWatermillAdapter("sink-sns"))
	if err != nil {
		return nil, err
	}
	return NewWatermillDestination(name, topic, pub), nil
}

// NewHTTPDestination POSTs each message to baseURL + topic
func NewHTTPDestination(name, baseURL, topic string, client *nethttp.Client) (*WatermillDestination, error) {
	target := strings.TrimRight(baseURL, "/") + "/"
	pub, err := HTTPPublisherFactory(http.PublisherConfig{
		MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
			return http.DefaultMarshalMessageFunc(target+topic, msg)
		},
		Client: client,
	}, logger.NewWatermillAdapter("sink-http"))
	if err != nil {
		return nil, err
	}
	return NewWatermillDestination(name, topic, pub), nil
}

// NewChannelDestination publishes onto an in-process gochannel pub/sub
func NewChannelDestination(name, topic string, pubSub *gochannel.GoChannel) *WatermillDestination {
	return NewWatermillDestination(name, topic, pubSub)
}

// NewGoChannel creates the in-process pub/sub used by channel sinks
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, logger.NewWatermillAdapter("sink-channel"))
}

// Name implements Destination
func (d *WatermillDestination) Name() string {
	return d.name
}

// Deliver implements Destination
func (d *WatermillDestination) Deliver(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	trace := map[string]string{}
	tracing.InjectToHeaders(ctx, trace)

	msgs := make([]*message.Message, 0, len(events))
	for _, e := range events {
		payload, err := jsoncodec.Marshal(e)
		if err != nil {
			return DeliveryError{Sink: d.name, Code: CodeEncode, Message: err.Error(), Err: err}
		}

		msg := message.NewMessage(ids.NewMessageID(), payload)
		msg.SetContext(ctx)
		msg.Metadata.Set(MetadataEvent, e.Event)
		msg.Metadata.Set(MetadataSchemaID, e.SchemaID())
		msg.Metadata.Set(MetadataSink, d.name)
		for k, v := range trace {
			msg.Metadata.Set(k, v)
		}
		msgs = append(msgs, msg)
	}

	if err := d.publisher.Publish(d.topic, msgs...); err != nil {
		d.log.Error().Err(err).Str("topic", d.topic).Int("events", len(events)).Msg("Failed to publish events")
		return AsDeliveryError(d.name, err)
	}
	return nil
}

// Close implements Destination
func (d *WatermillDestination) Close() error {
	return d.publisher.Close()
}
