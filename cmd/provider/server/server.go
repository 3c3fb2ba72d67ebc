package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"user-contract-service/cmd/provider/di"
	"user-contract-service/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
	GRPC   *grpc.Server
	Health *health.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	grpcServer, hs := SetupGRPC(cfg.Logger.ServiceName)

	return &Server{
		Config: cfg,
		Logger: l,
		HTTP:   SetupGinServer(c.UserHandler, c.StateHandler, cfg.Logger.ServiceName, httpAddress(cfg), l),
		GRPC:   grpcServer,
		Health: hs,
	}
}

// Start listens on the configured ports and serves until both servers stop
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	httpLis, err := lc.Listen(ctx, "tcp", httpAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen for HTTP: %w", err)
	}

	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	return s.Serve(httpLis, grpcLis)
}

// Serve runs the HTTP and gRPC servers on the given listeners
func (s *Server) Serve(httpLis, grpcLis net.Listener) error {
	g := new(errgroup.Group)

	g.Go(func() error {
		s.Logger.Info("gRPC health server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("HTTP server running", zap.String("address", httpLis.Addr().String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	s.setServing(healthpb.HealthCheckResponse_SERVING)

	return g.Wait()
}

// Shutdown reports NOT_SERVING and stops both servers
func (s *Server) Shutdown(ctx context.Context) error {
	s.Health.Shutdown()

	var errs []error
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	stopped := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.GRPC.Stop()
		errs = append(errs, fmt.Errorf("gRPC shutdown: %w", ctx.Err()))
	}

	return errors.Join(errs...)
}

func (s *Server) setServing(status healthpb.HealthCheckResponse_ServingStatus) {
	s.Health.SetServingStatus("", status)
	s.Health.SetServingStatus(s.Config.Logger.ServiceName, status)
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
