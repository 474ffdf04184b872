package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/jsoncodec"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/metrics"
	"github.com/flowmesh/schemagate/internal/storage/source"
)

// Store resolves schema IDs through a Source and caches every parsed schema
// for the life of the process. Concurrent misses for one ID may fetch twice;
// the last insert wins.
type Store struct {
	source       source.Source
	fetchTimeout time.Duration
	metrics      *metrics.SchemaMetrics
	log          zerolog.Logger

	cache   sync.Map // schemaID -> *Schema
	entries atomic.Int64
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithFetchTimeout bounds each backing fetch
func WithFetchTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.fetchTimeout = d }
}

// WithStoreMetrics records cache and fetch metrics
func WithStoreMetrics(m *metrics.SchemaMetrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a schema store over src
func NewStore(src source.Source, opts ...StoreOption) *Store {
	s := &Store{
		source: src,
		log:    logger.WithComponent("schema-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSchema returns the schema for schemaID. A cache hit performs no I/O.
func (s *Store) GetSchema(ctx context.Context, schemaID string) (*Schema, error) {
	if schemaID == "" {
		return nil, InvalidSchemaError{SchemaID: schemaID, Reason: "schema ID cannot be empty"}
	}

	if cached, ok := s.cache.Load(schemaID); ok {
		s.metrics.RecordCacheHit()
		return cached.(*Schema), nil
	}
	s.metrics.RecordCacheMiss()

	s.log.Debug().Str("schema_id", schemaID).Str("source", s.source.Name()).Msg("Fetching schema")

	data, err := s.fetch(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := jsoncodec.Unmarshal(data, &doc); err != nil {
		return nil, InvalidSchemaError{SchemaID: schemaID, Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}

	schema := &Schema{
		ID:         schemaID,
		Definition: data,
		Document:   doc,
		LoadedAt:   time.Now(),
	}

	if _, loaded := s.cache.Swap(schemaID, schema); !loaded {
		s.metrics.SetCacheEntries(int(s.entries.Add(1)))
	}

	s.log.Debug().Str("schema_id", schemaID).Int("bytes", len(data)).Msg("Schema loaded")
	return schema, nil
}

func (s *Store) fetch(ctx context.Context, schemaID string) ([]byte, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.source.Fetch(ctx, schemaID)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.metrics.RecordFetch(s.source.Name(), metrics.StatusOK, elapsed)
		return data, nil
	case errors.Is(err, source.ErrNotFound):
		s.metrics.RecordFetch(s.source.Name(), metrics.StatusNotFound, elapsed)
		return nil, NotFoundError{SchemaID: schemaID}
	default:
		s.metrics.RecordFetch(s.source.Name(), metrics.StatusUnavailable, elapsed)
		s.log.Error().Err(err).Str("schema_id", schemaID).Msg("Schema source unavailable")
		return nil, UnavailableError{SchemaID: schemaID, Err: err}
	}
}

// Len returns the number of cached schemas
func (s *Store) Len() int {
	return int(s.entries.Load())
}

// Purge drops schemaID from the cache. The router never calls it. The next
// GetSchema refetches, and validators recompile the new document.
func (s *Store) Purge(schemaID string) {
	if _, loaded := s.cache.LoadAndDelete(schemaID); loaded {
		s.metrics.SetCacheEntries(int(s.entries.Add(-1)))
	}
}
