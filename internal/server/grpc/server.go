// Package grpc runs the gRPC health endpoint used by orchestrators to probe
// the auth server.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "jazzyauth.AuthService"

type GRPCServer struct {
	listener      net.Listener
	srv           *grpc.Server
	health        *health.Server
	logger        logging.Logger
	ready         func(context.Context) error
	probeInterval time.Duration
}

// NewGRPCServer binds addr and prepares the health service. ready is polled
// every probeInterval; a failing probe flips the status to NOT_SERVING until
// it recovers. A nil ready always reports SERVING.
func NewGRPCServer(addr string, l logging.Logger, ready func(context.Context) error, probeInterval time.Duration) (*GRPCServer, error) {
	listen, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on grpc addr %s: %w", addr, err)
	}
	if probeInterval <= 0 {
		probeInterval = 10 * time.Second
	}

	s := &GRPCServer{
		listener:      listen,
		health:        health.NewServer(),
		logger:        l.With("module", "grpc_server"),
		ready:         ready,
		probeInterval: probeInterval,
	}

	s.srv = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor),
	)
	grpc_health_v1.RegisterHealthServer(s.srv, s.health)

	return s, nil
}

// Addr returns the bound listener address.
func (s *GRPCServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *GRPCServer) setStatus(st grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *GRPCServer) probe(ctx context.Context) {
	if s.ready == nil {
		s.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.probeInterval)
	defer cancel()
	if err := s.ready(probeCtx); err != nil {
		s.logger.Warn(ctx, "readiness probe failed", "error", err)
		s.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
}

func (s *GRPCServer) watch(ctx context.Context) {
	t := time.NewTicker(s.probeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	s.probe(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		s.srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.Addr())

	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
