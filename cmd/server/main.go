package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcAdapter "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/grpc"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/router"
	natsAdapter "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/repository/cache"
	mongoRepo "github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/mailer"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/tracer"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const healthCheckInterval = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	appLogger := logger.NewLogger()
	defer func() { _ = appLogger.Sync() }()

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger.Info("Application starting...", zap.String("service_name", cfg.ServiceName))

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)

	// MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = mongoClient.Ping(pingCtx, nil)
	cancelPing()
	if err != nil {
		appLogger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}
	db := mongoClient.Database(cfg.MongoDatabase)
	appLogger.Info("Successfully connected and pinged MongoDB.")

	listingRepo := mongoRepo.NewListingRepository(db, appLogger)
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 10*time.Second)
	if err := listingRepo.EnsureIndexes(indexCtx); err != nil {
		appLogger.Warn("Continuing without ensured indexes", zap.Error(err))
	}
	cancelIndex()
	userRepo := mongoRepo.NewUserRepository(db, appLogger)

	// Object store; avatars share the bucket under their own prefix.
	var avatarStore *s3.S3Storage
	storeOpts := s3.Options{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		PublicURL: cfg.MinIOPublicURL,
		Prefix:    s3.ListingPrefix,
	}
	storeCtx, cancelStore := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := s3.NewS3Storage(storeCtx, storeOpts, appLogger)
	if err == nil {
		storeOpts.Prefix = s3.AvatarPrefix
		avatarStore, err = s3.NewS3Storage(storeCtx, storeOpts, appLogger)
	}
	cancelStore()
	if err != nil {
		appLogger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Redis is an optimisation; the service runs without it.
	var listingCache usecase.ListingCache
	checks := map[string]grpcAdapter.Check{
		"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
	}
	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := cache.NewRedisClient(redisCtx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
	cancelRedis()
	if err != nil {
		appLogger.Warn("Redis unavailable, listing cache disabled", zap.String("address", cfg.RedisAddress), zap.Error(err))
	} else {
		defer redisClient.Close()
		listingCache = cache.NewListingCache(redisClient, cfg.CacheTTL, appLogger)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		appLogger.Info("Redis listing cache enabled", zap.Duration("ttl", cfg.CacheTTL))
	}

	natsPublisher, err := natsAdapter.NewPublisher(cfg.NATSURL, appLogger, cfg.ServiceName)
	if err != nil {
		appLogger.Fatal("Failed to initialize NATS publisher", zap.Error(err))
	}
	defer natsPublisher.Close()
	checks["nats"] = natsPublisher.Check

	var notifier usecase.Notifier
	if cfg.SMTPEnabled() {
		notifier = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPEmail, cfg.SMTPPassword)
	} else {
		appLogger.Info("SMTP not configured, comment notifications disabled")
	}

	listingUC := usecase.NewListingUsecase(listingRepo, userRepo, store, listingCache, natsPublisher, metricsManager, appLogger, cfg.CleanupTimeout)
	commentUC := usecase.NewCommentUsecase(listingRepo, userRepo, listingCache, natsPublisher, notifier, metricsManager, appLogger)
	profileUC := usecase.NewProfileUsecase(userRepo, listingUC, avatarStore, natsPublisher, metricsManager, appLogger, cfg.CleanupTimeout)

	httpSrv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: router.New(
			handler.NewListingHandler(listingUC, cfg.MaxUploadBytes, appLogger),
			handler.NewCommentHandler(commentUC, appLogger),
			handler.NewProfileHandler(profileUC, cfg.MaxUploadBytes, appLogger),
			router.Options{
				JWTSecret:      cfg.JWTSecret,
				AllowedOrigins: cfg.AllowedOrigins(),
				Logger:         appLogger,
				Metrics:        metricsManager,
			},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// gRPC health
	lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCHealthPort), zap.Error(err))
	}
	grpcSrv, healthServer := grpcAdapter.NewHealthServer(appLogger)
	go func() {
		appLogger.Info("Starting gRPC health server", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Fatal("gRPC server Serve error", zap.Error(err))
		}
	}()
	watchCtx, stopWatching := context.WithCancel(context.Background())
	defer stopWatching()
	go grpcAdapter.WatchDependencies(watchCtx, healthServer, healthCheckInterval, appLogger, checks)

	var metricsSrv *http.Server
	if cfg.PrometheusMetricsPort != "" {
		metricsSrv = metrics.NewMetricsServer(cfg.PrometheusMetricsPort, appLogger, metricsManager.Registry)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Prometheus metrics server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	stopWatching()
	healthServer.SetServingStatus(grpcAdapter.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.CleanupTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	commentUC.Wait()
	grpcSrv.GracefulStop()

	appLogger.Info("Application shut down")
}
