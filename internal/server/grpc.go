package server

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jonathan/resume-matcher/internal/types"
)

// Health service names reported alongside the overall ("") status.
const (
	HealthQueue = "matchd.queue"
	HealthCache = "matchd.cache"
	HealthStore = "matchd.store"
)

// NewHealthServer returns a gRPC health server reflecting caps. The overall
// service is always SERVING; each optional backend reports its own state.
func NewHealthServer(caps types.Capabilities) *health.Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthQueue, servingStatus(caps.QueueAvailable))
	hs.SetServingStatus(HealthCache, servingStatus(caps.CacheAvailable))
	hs.SetServingStatus(HealthStore, servingStatus(caps.StoreAvailable))
	return hs
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// ServeGRPC serves hs on port until ctx is cancelled.
func ServeGRPC(ctx context.Context, port int, hs *health.Server, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %d: %w", port, err)
	}
	return serveGRPC(ctx, lis, hs, logger)
}

func serveGRPC(ctx context.Context, lis net.Listener, hs *health.Server, logger *zap.Logger) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	logger.Info("grpc health server starting", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil {
		return fmt.Errorf("grpc server failed: %w", err)
	}
	return nil
}
