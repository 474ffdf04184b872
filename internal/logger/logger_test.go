package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobal(t *testing.T) {
	t.Helper()
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestInit_Levels(t *testing.T) {
	restoreGlobal(t)

	require.NoError(t, Init(&Config{Level: "warn", Format: "json"}))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	require.NoError(t, Init(&Config{Level: "bogus"}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	require.NoError(t, Init(&Config{Level: "error", Debug: true}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestInit_FileOutput(t *testing.T) {
	restoreGlobal(t)
	path := filepath.Join(t.TempDir(), "schemagate.log")

	require.NoError(t, Init(&Config{Level: "info", Format: "json", Output: path}))
	l := WithComponent("router")
	l.Info().Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"router"`)
	assert.Contains(t, string(data), `"service":"schemagate"`)
}

func TestWatermillAdapter(t *testing.T) {
	restoreGlobal(t)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	adapter := NewWatermillAdapter("sink").With(watermill.LogFields{"topic": "events"})
	adapter.Info("published", watermill.LogFields{"count": 2})
	adapter.Error("failed", errors.New("boom"), nil)

	out := buf.String()
	assert.Contains(t, out, `"topic":"events"`)
	assert.Contains(t, out, `"count":2`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"component":"sink"`)
}
