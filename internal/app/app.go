// Package app assembles the service from configuration and owns its
// start/stop lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/api"
	httpapi "github.com/flowmesh/schemagate/internal/api/http"
	"github.com/flowmesh/schemagate/internal/awsconf"
	"github.com/flowmesh/schemagate/internal/config"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/metrics"
	"github.com/flowmesh/schemagate/internal/router"
	"github.com/flowmesh/schemagate/internal/sink"
	"github.com/flowmesh/schemagate/internal/storage/schema"
	"github.com/flowmesh/schemagate/internal/storage/source"
	"github.com/flowmesh/schemagate/internal/tracing"
	"github.com/flowmesh/schemagate/internal/version"
)

// App is a fully wired schemagate instance
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	tracer  *tracing.Provider

	source     source.Source
	store      *schema.Store
	validator  *schema.Validator
	valid      sink.Destination
	deadLetter sink.Destination
	pubSub     *gochannel.GoChannel
	router     *router.Router

	api           *api.Server
	metricsServer *metrics.Server

	// closed in reverse order on Stop
	closers []io.Closer
}

// New builds every component from cfg without starting any listener
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:     cfg,
		log:     logger.WithComponent("app"),
		metrics: metrics.New(metrics.NewProcessCollector()),
	}

	tp, err := tracing.NewProvider(ctx, tracingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracing provider: %w", err)
	}
	a.tracer = tp

	if err := a.buildSource(ctx); err != nil {
		return nil, a.abandon(ctx, err)
	}

	a.store = schema.NewStore(a.source,
		schema.WithFetchTimeout(cfg.Schema.FetchTimeout),
		schema.WithStoreMetrics(a.metrics.Schema),
	)
	a.validator = schema.NewValidator(a.store)

	if err := a.buildSinks(ctx); err != nil {
		return nil, a.abandon(ctx, err)
	}

	a.router = router.New(a.validator, a.valid, a.deadLetter,
		router.WithDebug(cfg.Debug),
		router.WithFlushTimeout(cfg.Sinks.Timeout),
		router.WithMetrics(a.metrics.Router, a.metrics.Sink),
	)

	separateMetrics := cfg.Metrics.Enabled && cfg.Metrics.Addr != ""
	a.api = api.NewServer(api.Config{
		HTTPAddr: cfg.Server.HTTPAddr,
		GRPCAddr: cfg.Server.GRPCAddr,
		HTTP: httpapi.Options{
			Router:       a.router,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			AuthTokens:   cfg.Auth.Tokens,
			Metrics:      a.metrics,
			ServeMetrics: cfg.Metrics.Enabled && !separateMetrics,
		},
	})
	if separateMetrics {
		a.metricsServer = metrics.NewServer(cfg.Metrics.Addr, a.metrics.Collector)
	}

	return a, nil
}

func (a *App) buildSource(ctx context.Context) error {
	switch strings.ToLower(a.cfg.Schema.Source) {
	case config.SourceS3:
		awsCfg, err := awsconf.Load(ctx, a.cfg.AWS)
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		a.source = source.NewS3SourceFromConfig(awsCfg, a.cfg.Schema.Bucket)
	case config.SourceDir:
		a.source = source.NewDirSource(a.cfg.Schema.Dir)
	default:
		return fmt.Errorf("invalid schema source: %s", a.cfg.Schema.Source)
	}

	if a.cfg.Schema.MirrorDir != "" {
		mirror, err := source.NewMirrorSource(a.source, a.cfg.Schema.MirrorDir)
		if err != nil {
			return fmt.Errorf("failed to open schema mirror: %w", err)
		}
		a.source = mirror
		a.closers = append(a.closers, mirror)
	}

	a.log.Info().Str("source", a.source.Name()).Msg("Schema source configured")
	return nil
}

func (a *App) buildSinks(ctx context.Context) error {
	opts := sink.BuildOptions{}
	if a.cfg.Sinks.Valid.Type == config.SinkChannel || a.cfg.Sinks.Invalid.Type == config.SinkChannel {
		a.pubSub = sink.NewGoChannel()
		opts.GoChannel = a.pubSub
		a.closers = append(a.closers, a.pubSub)
	}

	valid, err := sink.Build(ctx, sink.NameValid, a.cfg.Sinks.Valid, a.cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to build valid sink: %w", err)
	}
	a.valid = valid
	a.closers = append(a.closers, valid)

	deadLetter, err := sink.Build(ctx, sink.NameDeadLetter, a.cfg.Sinks.Invalid, a.cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to build dead-letter sink: %w", err)
	}
	a.deadLetter = deadLetter
	a.closers = append(a.closers, deadLetter)

	a.log.Info().
		Str("valid", a.cfg.Sinks.Valid.Type).
		Str("dead_letter", a.cfg.Sinks.Invalid.Type).
		Msg("Sinks configured")
	return nil
}

// Start starts the listeners
func (a *App) Start(ctx context.Context) error {
	a.log.Info().
		Str("version", version.Get().Version).
		Bool("debug", a.cfg.Debug).
		Msg("Starting schemagate")

	if a.metricsServer != nil {
		if err := a.metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	if err := a.api.Start(ctx); err != nil {
		if a.metricsServer != nil {
			_ = a.metricsServer.Stop(ctx)
		}
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop drains the listeners, then closes sinks, the schema mirror and the
// tracer. It returns the first error but always attempts every step.
func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if err := a.api.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	if err := a.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	a.log.Info().Msg("schemagate stopped")
	return errors.Join(errs...)
}

// abandon releases whatever New managed to build before err
func (a *App) abandon(ctx context.Context, err error) error {
	_ = a.closeAll()
	_ = a.tracer.Shutdown(ctx)
	return err
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn().Err(err).Msg("Close failed")
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Ready reports whether the listeners are serving
func (a *App) Ready() bool {
	return a.api.Ready()
}

// Router returns the batch router
func (a *App) Router() *router.Router {
	return a.router
}

// PubSub returns the in-process pub/sub backing channel sinks, or nil
func (a *App) PubSub() *gochannel.GoChannel {
	return a.pubSub
}

// HTTPAddr returns the bound HTTP address once started
func (a *App) HTTPAddr() string {
	return a.api.HTTPAddr()
}

// Metrics returns the registered recorders
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

func tracingConfig(cfg *config.Config) tracing.TracingConfig {
	tc := tracing.DefaultTracingConfig()
	tc.Enabled = cfg.Tracing.Enabled
	tc.Endpoint = cfg.Tracing.Endpoint
	tc.ExporterType = cfg.Tracing.ExporterType
	tc.Insecure = cfg.Tracing.Insecure
	tc.ServiceVersion = version.Get().Version
	tc.SchemaSource = cfg.Schema.Source
	tc.ValidSink = cfg.Sinks.Valid.Type
	tc.DeadLetterSink = cfg.Sinks.Invalid.Type
	tc.Debug = cfg.Debug
	return tc
}
