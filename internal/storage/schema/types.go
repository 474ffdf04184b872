package schema

import (
	"context"
	"time"
)

// IDProperty is the event property carrying the schema ID. It is metadata
// and never validated.
const IDProperty = "schema_id"

// Schema is a parsed JSON Schema document. It is never mutated once cached.
type Schema struct {
	// ID is the schema identifier
	ID string
	// Definition is the raw document as fetched
	Definition []byte
	// Document is the parsed definition, usually a map[string]any
	Document any
	// LoadedAt is when the schema was fetched
	LoadedAt time.Time
}

// Result is the outcome of validating one property bag.
type Result struct {
	Valid  bool
	Errors []string
}

// Getter resolves schema IDs to schemas
type Getter interface {
	GetSchema(ctx context.Context, schemaID string) (*Schema, error)
}
