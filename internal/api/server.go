// Package api runs the inbound HTTP surface and the gRPC health endpoint
// as one unit.
package api

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	grpcapi "github.com/flowmesh/schemagate/internal/api/grpc"
	httpapi "github.com/flowmesh/schemagate/internal/api/http"
	"github.com/flowmesh/schemagate/internal/logger"
)

// Config holds configuration for the API server
type Config struct {
	HTTPAddr string
	// GRPCAddr enables the gRPC health server when set
	GRPCAddr string
	HTTP     httpapi.Options
}

// Server manages both gRPC and HTTP servers
type Server struct {
	grpcServer *grpcapi.Server
	httpServer *httpapi.Server
	log        zerolog.Logger
	// ready is read by /ready while Stop drains, so it never takes mu
	ready      atomic.Bool
	mu         sync.Mutex
}

// NewServer creates a new API server. When cfg.HTTP.Ready is nil the
// server's own readiness backs /ready.
func NewServer(cfg Config) *Server {
	s := &Server{
		log: logger.WithComponent("api"),
	}

	if cfg.HTTP.Ready == nil {
		cfg.HTTP.Ready = s.Ready
	}
	s.httpServer = httpapi.NewServer(cfg.HTTPAddr, cfg.HTTP)
	if cfg.GRPCAddr != "" {
		s.grpcServer = grpcapi.NewServer(cfg.GRPCAddr)
	}

	return s
}

// Start starts the HTTP server, then the gRPC server, and marks the
// service as serving.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return nil
	}

	s.log.Info().Msg("Starting API server")

	if err := s.httpServer.Start(ctx); err != nil {
		return err
	}

	if s.grpcServer != nil {
		if err := s.grpcServer.Start(ctx); err != nil {
			// Stop HTTP server if gRPC fails
			_ = s.httpServer.Stop(ctx)
			return err
		}
		s.grpcServer.SetServing(true)
	}

	s.ready.Store(true)
	s.log.Info().Msg("API server started")

	return nil
}

// Stop gracefully stops both servers
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready.Load() {
		return nil
	}

	s.log.Info().Msg("Stopping API server")

	// Fail probes first so balancers drain us
	s.ready.Store(false)
	if s.grpcServer != nil {
		s.grpcServer.SetServing(false)
	}

	if err := s.httpServer.Stop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Error stopping HTTP server")
	}

	if s.grpcServer != nil {
		if err := s.grpcServer.Stop(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Error stopping gRPC server")
		}
	}

	s.log.Info().Msg("API server stopped")

	return nil
}

// Ready returns true if the server is ready
func (s *Server) Ready() bool {
	if !s.ready.Load() || !s.httpServer.Ready() {
		return false
	}
	return s.grpcServer == nil || s.grpcServer.Ready()
}

// HTTPAddr returns the bound HTTP address once started
func (s *Server) HTTPAddr() string {
	return s.httpServer.Addr()
}

// GRPCAddr returns the bound gRPC address once started, or "" when disabled
func (s *Server) GRPCAddr() string {
	if s.grpcServer == nil {
		return ""
	}
	return s.grpcServer.Addr()
}
