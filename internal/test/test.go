// Package test holds fixtures shared by package tests.
package test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/schemagate/internal/event"
)

// WriteSchema writes body under root at the path named by schemaID and
// returns the file path.
func WriteSchema(t *testing.T, root, schemaID, body string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(schemaID))
	//nolint:gosec // Acceptable: test directory permissions
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	//nolint:gosec // Acceptable: test file permissions
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// SchemaDir creates a temporary schema root holding schemas keyed by ID.
// The directory is removed after the test.
func SchemaDir(t *testing.T, schemas map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for id, body := range schemas {
		WriteSchema(t, root, id, body)
	}
	return root
}

// AssertFileExists checks if a file exists and fails the test if it doesn't.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.NoError(t, err, "file should exist: %s", path)
}

// RecordingDestination is an in-memory sink destination that keeps every
// delivered slice. Err, when set, is returned from Deliver after recording.
type RecordingDestination struct {
	DestName string
	Err      error

	mu      sync.Mutex
	flushes [][]*event.Event
	closed  bool
}

// NewRecordingDestination creates a recording destination called name
func NewRecordingDestination(name string) *RecordingDestination {
	return &RecordingDestination{DestName: name}
}

func (d *RecordingDestination) Name() string { return d.DestName }

func (d *RecordingDestination) Deliver(ctx context.Context, events []*event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes = append(d.flushes, append([]*event.Event(nil), events...))
	return d.Err
}

func (d *RecordingDestination) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Calls returns the number of Deliver calls
func (d *RecordingDestination) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.flushes)
}

// Flushes returns each Deliver call's events, one slice per call
func (d *RecordingDestination) Flushes() [][]*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]*event.Event(nil), d.flushes...)
}

// Events returns every delivered event in delivery order
func (d *RecordingDestination) Events() []*event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*event.Event
	for _, f := range d.flushes {
		out = append(out, f...)
	}
	return out
}

// Closed reports whether Close was called
func (d *RecordingDestination) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
