package grpc

import (
	"context"
	"net"
	"time"

	"ridepool-backend/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name load balancers ask for; "" covers the whole server.
const ServiceName = "ridepool.Backend"

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthServer exposes grpc.health.v1 and reflection for infrastructure health checks.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	checks []Check
}

func NewHealthServer(checks ...Check) *HealthServer {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(recoveryInterceptor),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	// Register reflection service for grpcurl
	reflection.Register(s)

	hs := &HealthServer{server: s, health: h, checks: checks}
	hs.setStatus(healthpb.HealthCheckResponse_SERVING)
	return hs
}

// Refresh runs every check once and publishes the combined status.
func (hs *HealthServer) Refresh(ctx context.Context) {
	for _, check := range hs.checks {
		if err := check(ctx); err != nil {
			logger.Warn("Health check failed", "error", err)
			hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
	}
	hs.setStatus(healthpb.HealthCheckResponse_SERVING)
}

// Watch refreshes the status every interval until ctx is done.
func (hs *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			hs.Refresh(checkCtx)
			cancel()
		}
	}
}

func (hs *HealthServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	hs.health.SetServingStatus("", st)
	hs.health.SetServingStatus(ServiceName, st)
}

func (hs *HealthServer) Serve(lis net.Listener) error {
	logger.Info("gRPC health server listening", "address", lis.Addr().String())
	return hs.server.Serve(lis)
}

// Stop marks the server as shutting down and drains in-flight RPCs.
func (hs *HealthServer) Stop() {
	hs.health.Shutdown()
	hs.server.GracefulStop()
}

func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("gRPC handler panicked", "method", info.FullMethod, "panic", r)
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
