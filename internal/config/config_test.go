package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{HTTPAddr: ":8080", MaxBodyBytes: 1024},
		Schema: SchemaConfig{Source: SourceDir, Dir: "./schemas"},
		Sinks: SinksConfig{
			Valid:   SinkConfig{Type: SinkLog},
			Invalid: SinkConfig{Type: SinkLog},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, SourceS3, cfg.Schema.Source)
	assert.Equal(t, 5*time.Second, cfg.Schema.FetchTimeout)
	assert.Equal(t, SinkLog, cfg.Sinks.Valid.Type)
	assert.Equal(t, SinkLog, cfg.Sinks.Invalid.Type)
	assert.Equal(t, 3, cfg.Sinks.MaxRetries)
}

func TestFromEnv_SinkPrefixes(t *testing.T) {
	t.Setenv("DEBUG", "true")
	t.Setenv("REGISTRY_BUCKET", "registry")
	t.Setenv("VALID_SINK_TYPE", "segment")
	t.Setenv("VALID_WRITE_KEY", "valid-key")
	t.Setenv("INVALID_SINK_TYPE", "kafka")
	t.Setenv("INVALID_TOPIC", "events-dlq")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AUTH_TOKENS", "a,b")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "registry", cfg.Schema.Bucket)
	assert.Equal(t, SinkSegment, cfg.Sinks.Valid.Type)
	assert.Equal(t, "valid-key", cfg.Sinks.Valid.WriteKey)
	assert.Equal(t, SinkKafka, cfg.Sinks.Invalid.Type)
	assert.Equal(t, "events-dlq", cfg.Sinks.Invalid.Topic)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Sinks.KafkaBrokers)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.Tokens)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("SCHEMA_SOURCE", "dir")
	t.Setenv("SERVER_HTTP_ADDR", ":9000")

	cfg, err := Load([]string{"-http-addr", ":9100", "-debug", "-schema-dir", "testdata/../schemas"})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.HTTPAddr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "schemas", cfg.Schema.Dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "http server address"},
		{"s3 without bucket", func(c *Config) { c.Schema.Source = SourceS3 }, "REGISTRY_BUCKET"},
		{"unknown source", func(c *Config) { c.Schema.Source = "dynamo" }, "invalid schema source"},
		{"segment without key", func(c *Config) {
			c.Sinks.Valid.Type = SinkSegment
			c.Sinks.SegmentEndpoint = "https://api.segment.io"
		}, "write key"},
		{"kafka without brokers", func(c *Config) {
			c.Sinks.Invalid = SinkConfig{Type: SinkKafka, Topic: "dlq"}
		}, "KAFKA_BROKERS"},
		{"nats without topic", func(c *Config) { c.Sinks.Invalid.Type = SinkNATS }, "topic is required"},
		{"http without url", func(c *Config) { c.Sinks.Valid.Type = SinkHTTP }, "HTTP_SINK_URL"},
		{"unknown sink", func(c *Config) { c.Sinks.Valid.Type = "pigeon" }, "invalid type"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }, "tracing endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
