package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/jsoncodec"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/version"
)

const (
	defaultSegmentEndpoint = "https://api.segment.io"
	segmentBatchPath       = "/v1/batch"
	segmentMaxBatchSize    = 100
)

// SegmentConfig configures a Segment tracking API destination
type SegmentConfig struct {
	Name       string
	Endpoint   string
	WriteKey   string
	MaxRetries int
	Client     *http.Client

	// InitialInterval is the first retry delay, doubled per attempt
	InitialInterval time.Duration
}

// SegmentDestination posts events to the Segment batch API, authenticated
// with the destination's write key. Network errors, 429 and 5xx responses
// are retried with exponential backoff; other 4xx responses fail at once.
type SegmentDestination struct {
	cfg    SegmentConfig
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewSegmentDestination creates a Segment destination
func NewSegmentDestination(cfg SegmentConfig) *SegmentDestination {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultSegmentEndpoint
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &SegmentDestination{
		cfg:    cfg,
		url:    strings.TrimRight(cfg.Endpoint, "/") + segmentBatchPath,
		client: client,
		log:    logger.WithComponent("sink").With().Str("sink", cfg.Name).Logger(),
	}
}

// Name implements Destination
func (d *SegmentDestination) Name() string {
	return d.cfg.Name
}

type segmentBatch struct {
	Batch  []*event.Event `json:"batch"`
	SentAt string         `json:"sentAt"`
}

// Deliver implements Destination. Events are sent in chunks; the first
// failing chunk stops delivery.
func (d *SegmentDestination) Deliver(ctx context.Context, events []*event.Event) error {
	for i := 0; i < len(events); i += segmentMaxBatchSize {
		end := i + segmentMaxBatchSize
		if end > len(events) {
			end = len(events)
		}
		if err := d.send(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *SegmentDestination) send(ctx context.Context, events []*event.Event) error {
	for _, e := range events {
		if e.Type == "" {
			e.Type = "track"
		}
		// Stable across retries so Segment can deduplicate
		if e.MessageID == "" {
			e.MessageID = uuid.NewString()
		}
	}

	body, err := jsoncodec.Marshal(segmentBatch{Batch: events, SentAt: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return DeliveryError{Sink: d.cfg.Name, Code: CodeEncode, Message: err.Error(), Err: err}
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		d.log.Debug().Int("attempt", attempt).Int("events", len(events)).Msg("Sending batch to Segment")
		return struct{}{}, d.post(ctx, body)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.cfg.MaxRetries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			d.log.Warn().Err(err).Dur("retry_in", next).Msg("Segment delivery failed, retrying")
		}),
	)
	if err != nil {
		var de DeliveryError
		if errors.As(err, &de) {
			return de
		}
		code := CodeUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = CodeTimeout
		}
		return DeliveryError{Sink: d.cfg.Name, Code: code, Message: err.Error(), Err: err}
	}
	return nil
}

func (d *SegmentDestination) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "schemagate/"+version.Get().Version)
	req.SetBasicAuth(d.cfg.WriteKey, "")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	de := DeliveryError{
		Sink:    d.cfg.Name,
		Code:    fmt.Sprintf("http_%d", resp.StatusCode),
		Message: strings.TrimSpace(string(msg)),
	}
	if de.Message == "" {
		de.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return de
	}
	return backoff.Permanent(de)
}

// Close implements Destination
func (d *SegmentDestination) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
