package grpc

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-check service name reported for the marketplace.
const ServiceName = "marketplace.ListingService"

// NewHealthServer builds the gRPC server exposing the standard health service
// for orchestrators. It starts in NOT_SERVING until the caller flips it.
func NewHealthServer(appLogger *logger.Logger) (*grpc.Server, *health.Server) {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(appLogger.Named("grpc"))),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return server, healthServer
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// WatchDependencies runs the checks every interval and reports SERVING only
// while all of them pass. It returns when ctx is done.
func WatchDependencies(ctx context.Context, hs *health.Server, interval time.Duration, log *logger.Logger, checks map[string]Check) {
	runChecks := func() {
		serving := grpc_health_v1.HealthCheckResponse_SERVING
		for name, check := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			err := check(checkCtx)
			cancel()
			if err != nil {
				log.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
				serving = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
		}
		hs.SetServingStatus(ServiceName, serving)
		hs.SetServingStatus("", serving)
	}

	runChecks()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runChecks()
		}
	}
}

// LoggingInterceptor logs every unary call with its trace id and outcome.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("status_code", status.Code(err).String()),
			zap.String("trace_id", trace.SpanFromContext(ctx).SpanContext().TraceID().String()),
		}
		if err != nil {
			log.Error("gRPC request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("gRPC request handled", fields...)
		}
		return resp, err
	}
}
