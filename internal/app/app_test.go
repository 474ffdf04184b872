package app

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/schemagate/internal/config"
	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/jsoncodec"
	"github.com/flowmesh/schemagate/internal/sink"
	"github.com/flowmesh/schemagate/internal/test"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	root := test.SchemaDir(t, map[string]string{
		"app/order_completed/1-0.json": `{"type":"object","properties":{"total":{"type":"number"}},"required":["total"]}`,
	})

	cfg.Debug = true
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	cfg.Schema.Source = config.SourceDir
	cfg.Schema.Dir = root
	cfg.Schema.MirrorDir = filepath.Join(t.TempDir(), "mirror")
	cfg.Sinks.Valid = config.SinkConfig{Type: config.SinkChannel, Topic: "events.valid"}
	cfg.Sinks.Invalid = config.SinkConfig{Type: config.SinkChannel, Topic: "events.dead_letter"}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	cfg.Tracing.Enabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestApp_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, a.PubSub())

	validCh, err := a.PubSub().Subscribe(ctx, "events.valid")
	require.NoError(t, err)
	deadCh, err := a.PubSub().Subscribe(ctx, "events.dead_letter")
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))
	assert.True(t, a.Ready())

	body := `{"batch":[
		{"event":"Order Completed","userId":"u1","properties":{"schema_id":"app/order_completed/1-0.json","total":12.5}},
		{"event":"Order Completed","userId":"u2","properties":{"schema_id":"app/order_completed/1-0.json","total":"lots"}}
	]}`
	resp, err := http.Post("http://"+a.HTTPAddr()+"/v1/batch", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	valid := receive(t, validCh)
	assert.Equal(t, sink.NameValid, valid.Metadata.Get(sink.MetadataSink))
	assert.Equal(t, "app/order_completed/1-0.json", valid.Metadata.Get(sink.MetadataSchemaID))

	dead := receive(t, deadCh)
	var e event.Event
	require.NoError(t, jsoncodec.Unmarshal(dead.Payload, &e))
	assert.Equal(t, "u2", e.UserID)
	assert.NotEmpty(t, e.ValidationErrors())

	require.NoError(t, a.Stop(ctx))
	assert.False(t, a.Ready())
}

func TestNew_RejectsUnknownSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sinks.Invalid = config.SinkConfig{Type: "carrier-pigeon"}

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dead-letter sink")
}

func TestNew_SeparateMetricsServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Sinks.Valid = config.SinkConfig{Type: config.SinkLog}
	cfg.Sinks.Invalid = config.SinkConfig{Type: config.SinkLog}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, a.metricsServer)
	assert.Nil(t, a.PubSub())

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer a.Stop(ctx)

	// /metrics moved off the ingest port
	resp, err := http.Get("http://" + a.HTTPAddr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
