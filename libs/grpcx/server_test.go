package grpcx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

func TestUnaryServerRequestIDInterceptor(t *testing.T) {
	interceptor := UnaryServerRequestIDInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "rid-42"))
	var seen string
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
	if seen != "rid-42" {
		t.Fatalf("expected incoming id, got %q", seen)
	}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		seen = RequestIDFromContext(ctx)
		return nil, nil
	})
	if len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestHealthTrack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, hs := NewServer(logger, "listing-service")

	check := func(ctx context.Context, want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: "listing-service"})
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if resp.GetStatus() != want {
			t.Fatalf("expected %v, got %v", want, resp.GetStatus())
		}
	}
	check(context.Background(), healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hs.Track(ctx, time.Hour, func(context.Context) error { return nil })
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "listing-service"})
		if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("health never became SERVING")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	_, hs = NewServer(logger, "listing-service")
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	hs.Track(ctx, time.Hour, func(context.Context) error { return errors.New("db down") })
	check(context.Background(), healthpb.HealthCheckResponse_NOT_SERVING)
}
