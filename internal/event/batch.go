package event

import (
	"fmt"

	"github.com/flowmesh/schemagate/internal/jsoncodec"
)

// Batch is one request's worth of events, processed and flushed as a unit.
type Batch struct {
	Batch []*Event `json:"batch"`

	// Batch-level defaults applied to events that lack their own
	Context      map[string]any `json:"context,omitempty"`
	Integrations map[string]any `json:"integrations,omitempty"`
	SentAt       string         `json:"sentAt,omitempty"`
}

// Len returns the number of events in the batch
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Batch)
}

// Normalize fills defaults on every event: null entries become empty
// events, missing context and integrations inherit the batch values,
// and nil maps become empty ones.
func (b *Batch) Normalize() {
	for i, e := range b.Batch {
		if e == nil {
			e = &Event{}
			b.Batch[i] = e
		}
		if e.Context == nil && b.Context != nil {
			e.Context = cloneMap(b.Context)
		}
		if e.Integrations == nil && b.Integrations != nil {
			e.Integrations = cloneMap(b.Integrations)
		}
		if e.SentAt == "" {
			e.SentAt = b.SentAt
		}
		e.normalize()
	}
}

type envelope struct {
	Batch []*Event `json:"batch"`
	Event *string  `json:"event"`
}

// DecodeBatch decodes a request body. A body without a "batch" key but with
// an "event" key is treated as a batch of one.
func DecodeBatch(data []byte) (*Batch, error) {
	var env envelope
	if err := jsoncodec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	switch {
	case env.Batch != nil:
		var b Batch
		if err := jsoncodec.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("invalid batch: %w", err)
		}
		b.Normalize()
		return &b, nil
	case env.Event != nil:
		var e Event
		if err := jsoncodec.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("invalid event: %w", err)
		}
		b := &Batch{Batch: []*Event{&e}}
		b.Normalize()
		return b, nil
	default:
		return nil, ErrNoBatch
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
