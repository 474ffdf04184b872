// Package source provides the backing stores schemas are fetched from.
package source

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Fetch when the backing store holds no object
// for the requested schema ID. Every other error means the store could not
// answer.
var ErrNotFound = errors.New("schema object not found")

// Source fetches raw schema documents by schema ID.
type Source interface {
	Fetch(ctx context.Context, schemaID string) ([]byte, error)
	Name() string
}

// ObjectKey returns the object store key for a schema ID
func ObjectKey(schemaID string) string {
	return "schemas/" + schemaID
}
