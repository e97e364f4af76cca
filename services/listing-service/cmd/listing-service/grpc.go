package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/grpcx"
)

// startGrpcServer exposes the standard health service so orchestrators can
// health-check the listing service over gRPC.
func startGrpcServer(ctx context.Context, logger *slog.Logger, service, port string, check func(context.Context) error) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, health := grpcx.NewServer(logger, service)
	go health.Track(ctx, 10*time.Second, check)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return nil
}
