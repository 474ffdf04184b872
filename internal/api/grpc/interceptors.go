package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// loggingInterceptor logs requests and responses
func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	log := s.log.With().
		Str("method", info.FullMethod).
		Dur("duration", time.Since(start)).
		Logger()

	if err != nil {
		log.Warn().Err(err).Str("code", status.Code(err).String()).Msg("gRPC request failed")
	} else {
		// Probes arrive every few seconds
		log.Debug().Msg("gRPC request completed")
	}

	return resp, err
}
