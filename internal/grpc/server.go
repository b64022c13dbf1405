package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"imageAnnotation/internal/auth"
	"imageAnnotation/internal/config"
	"imageAnnotation/internal/progress"
	"imageAnnotation/repository"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Services are the repositories behind the gRPC services.
type Services struct {
	Users    repository.UserRepositoryI
	Batches  repository.BatchRepositoryI
	Labels   repository.LabelRepositoryI
	Images   repository.ImageRepositoryI
	Progress *progress.Reporter
}

// NewServer builds a gRPC server with the health, annotation and admin services
// registered behind the authentication interceptor. Only the health check is
// reachable without a token.
func NewServer(cfg *config.Config, svc Services, logger *slog.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(logger),
		auth.NewUnaryAuthInterceptor(cfg.Auth.JWTSecret, healthCheckMethod),
	))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	RegisterAnnotationService(srv, &AnnotationServer{Batches: svc.Batches, Labels: svc.Labels, Images: svc.Images})
	RegisterAdminService(srv, &AdminServer{Users: svc.Users, Progress: svc.Progress})

	return srv, hs
}

// StartGRPC starts the gRPC server on cfg.GRPC.Address and returns its health
// server together with a shutdown function.
func StartGRPC(cfg *config.Config, svc Services, logger *slog.Logger) (*health.Server, func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	srv, hs := NewServer(cfg, svc, logger)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc server stopped", "error", err)
		}
	}()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.Info("grpc server listening", "addr", lis.Addr().String())

	return hs, func(ctx context.Context) error {
		hs.Shutdown()
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.InfoContext(ctx, "grpc request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}
