package http

import (
	"net/http"

	"github.com/flowmesh/schemagate/internal/api/http/handlers"
	"github.com/flowmesh/schemagate/internal/api/http/middleware"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/metrics"
)

// Options configures the HTTP surface
type Options struct {
	// Router routes decoded batches
	Router handlers.BatchRouter
	// MaxBodyBytes caps request bodies, zero disables the cap
	MaxBodyBytes int64
	// AuthTokens guards the ingest routes, empty disables auth
	AuthTokens []string
	// Ready reports readiness for /ready
	Ready func() bool
	// Metrics records API metrics and, with ServeMetrics, backs /metrics
	Metrics      *metrics.Metrics
	ServeMetrics bool
}

// Router manages HTTP routes and middleware
type Router struct {
	mux  *http.ServeMux
	opts Options
}

// NewRouter creates a new router
func NewRouter(opts Options) *Router {
	r := &Router{
		mux:  http.NewServeMux(),
		opts: opts,
	}

	r.setupRoutes()

	return r
}

// ServeHTTP lets the router be used directly as a handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// setupRoutes sets up all HTTP routes
func (r *Router) setupRoutes() {
	log := logger.WithComponent("http.middleware")

	var apiMetrics *metrics.APIMetrics
	if r.opts.Metrics != nil {
		apiMetrics = r.opts.Metrics.API
	}

	// Health, readiness and metrics skip auth
	open := func(route string) func(http.Handler) http.Handler {
		return middleware.Chain(
			middleware.Recovery(log),
			middleware.Metrics(apiMetrics, route),
		)
	}

	ingest := func(route string) func(http.Handler) http.Handler {
		return middleware.Chain(
			middleware.Recovery(log),
			middleware.Logging(log),
			middleware.Tracing(route),
			middleware.Metrics(apiMetrics, route),
			middleware.Auth(r.opts.AuthTokens),
		)
	}

	batch := handlers.NewBatchHandler(r.opts.Router, r.opts.MaxBodyBytes)

	r.mux.Handle("/v1/batch", ingest("/v1/batch")(batch))
	// Segment-compatible alias used by proxies that point a source at us
	r.mux.Handle("/validate/segment", ingest("/validate/segment")(batch))

	r.mux.Handle("/health", open("/health")(http.HandlerFunc(handlers.HealthCheck)))
	r.mux.Handle("/ready", open("/ready")(handlers.ReadinessCheck(r.opts.Ready)))

	if r.opts.ServeMetrics && r.opts.Metrics != nil {
		r.mux.Handle("/metrics", handlers.MetricsHandler(r.opts.Metrics.Collector))
	}

	r.mux.Handle("/", open("/")(http.HandlerFunc(handlers.Index)))
}
