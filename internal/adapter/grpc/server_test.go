package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func healthStatus(t *testing.T, hs interface {
	Check(context.Context, *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error)
}) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.Status
}

func TestNewHealthServer_StartsNotServing(t *testing.T) {
	_, hs := NewHealthServer(logger.NewNop())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, healthStatus(t, hs))
}

func TestWatchDependencies(t *testing.T) {
	_, hs := NewHealthServer(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	WatchDependencies(ctx, hs, time.Second, logger.NewNop(), map[string]Check{
		"mongo": func(context.Context) error { return nil },
	})
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, healthStatus(t, hs))

	WatchDependencies(ctx, hs, time.Second, logger.NewNop(), map[string]Check{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, healthStatus(t, hs))
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor(logger.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
