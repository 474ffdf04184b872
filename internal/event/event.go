// Package event defines the tracking records accepted on the batch endpoint.
package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/flowmesh/schemagate/internal/jsoncodec"
)

// Property keys with routing meaning
const (
	SchemaIDKey         = "schema_id"
	ValidationErrorsKey = "validation_errors"
)

// ErrNoBatch is returned when a request body carries neither a batch nor a single event
var ErrNoBatch = errors.New("request body has no batch")

// Event is a single analytics tracking record.
type Event struct {
	Type         string         `json:"type,omitempty"`
	Event        string         `json:"event,omitempty"`
	MessageID    string         `json:"messageId,omitempty"`
	AnonymousID  string         `json:"anonymousId,omitempty"`
	UserID       string         `json:"userId,omitempty"`
	Context      map[string]any `json:"context"`
	Integrations map[string]any `json:"integrations"`
	Properties   map[string]any `json:"properties"`
	// Timestamp is kept raw so that a malformed value dead-letters the
	// event instead of failing the whole request body.
	Timestamp any    `json:"timestamp,omitempty"`
	SentAt    string `json:"sentAt,omitempty"`
}

// SchemaID returns properties.schema_id, or "" when absent or not a string.
func (e *Event) SchemaID() string {
	if e.Properties == nil {
		return ""
	}
	id, _ := e.Properties[SchemaIDKey].(string)
	return id
}

// HasTimestamp reports whether the event carries any timestamp value
func (e *Event) HasTimestamp() bool {
	if e.Timestamp == nil {
		return false
	}
	s, ok := e.Timestamp.(string)
	return !ok || s != ""
}

// ParseTimestamp parses the event timestamp. Only string values are accepted.
func (e *Event) ParseTimestamp() (time.Time, error) {
	s, ok := e.Timestamp.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp is %T, want string", e.Timestamp)
	}
	return ParseTime(s)
}

// SetTimestamp overwrites the timestamp with t in RFC 3339 form
func (e *Event) SetTimestamp(t time.Time) {
	e.Timestamp = t.UTC().Format(time.RFC3339Nano)
}

// SetValidationErrors attaches errs under properties.validation_errors.
func (e *Event) SetValidationErrors(errs []string) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	out := make([]string, len(errs))
	copy(out, errs)
	e.Properties[ValidationErrorsKey] = out
}

// ValidationErrors returns the attached validation errors, if any
func (e *Event) ValidationErrors() []string {
	if e.Properties == nil {
		return nil
	}
	switch v := e.Properties[ValidationErrorsKey].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (e *Event) normalize() {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	if e.Integrations == nil {
		e.Integrations = make(map[string]any)
	}
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
}

// Marshal encodes the event as JSON
func (e *Event) Marshal() ([]byte, error) {
	return jsoncodec.Marshal(e)
}
