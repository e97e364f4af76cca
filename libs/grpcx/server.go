package grpcx

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer wraps the standard gRPC health service.
type HealthServer struct {
	*health.Server
	service string
}

// NewServer builds a gRPC server with tracing, request ids and the standard
// health service registered for service.
func NewServer(logger *slog.Logger, service string, extra ...grpc.ServerOption) (*grpc.Server, *HealthServer) {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLogInterceptor(logger),
		),
	}
	srv := grpc.NewServer(append(opts, extra...)...)

	hs := &HealthServer{Server: health.NewServer(), service: service}
	healthpb.RegisterHealthServer(srv, hs.Server)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return srv, hs
}

// Track mirrors check into the health status of the service every interval
// until ctx is done.
func (h *HealthServer) Track(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	update := func() {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if check != nil && check(cctx) != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		h.SetServingStatus(h.service, st)
		h.SetServingStatus("", st)
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
