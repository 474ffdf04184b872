package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/logger"
)

// MirrorSource keeps an on-disk pebble copy of every schema fetched from
// upstream, so a restarted process does not need the object store for
// schemas it has already seen. Schemas are immutable, so mirrored entries
// never go stale.
type MirrorSource struct {
	upstream Source
	db       *pebble.DB
	log      zerolog.Logger
}

// NewMirrorSource opens (or creates) the pebble mirror in dir
func NewMirrorSource(upstream Source, dir string) (*MirrorSource, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open schema mirror: %w", err)
	}

	return &MirrorSource{
		upstream: upstream,
		db:       db,
		log:      logger.WithComponent("schema-mirror"),
	}, nil
}

// Name implements Source
func (m *MirrorSource) Name() string {
	return "mirror+" + m.upstream.Name()
}

// Fetch implements Source. Mirror read failures fall back to upstream and
// mirror write failures are only logged.
func (m *MirrorSource) Fetch(ctx context.Context, schemaID string) ([]byte, error) {
	if data, ok := m.lookup(schemaID); ok {
		return data, nil
	}

	data, err := m.upstream.Fetch(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	if err := m.db.Set([]byte(schemaID), data, pebble.Sync); err != nil {
		m.log.Warn().Err(err).Str("schema_id", schemaID).Msg("Failed to mirror schema")
	}
	return data, nil
}

func (m *MirrorSource) lookup(schemaID string) ([]byte, bool) {
	value, closer, err := m.db.Get([]byte(schemaID))
	if err != nil {
		if !errors.Is(err, pebble.ErrNotFound) {
			m.log.Warn().Err(err).Str("schema_id", schemaID).Msg("Schema mirror read failed")
		}
		return nil, false
	}
	defer closer.Close()

	// Copy value bytes (closer will free the original)
	data := make([]byte, len(value))
	copy(data, value)
	return data, true
}

// Close closes the mirror database
func (m *MirrorSource) Close() error {
	return m.db.Close()
}
