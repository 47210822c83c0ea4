package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"dm-service/internal/auth"
	"dm-service/internal/config"
	"dm-service/internal/db"
	"dm-service/internal/grpcserver"
	"dm-service/internal/handlers"
	"dm-service/internal/logger"
	"dm-service/internal/middleware"
	"dm-service/internal/moderation"
	"dm-service/internal/notifications"
	"dm-service/internal/observability"
	"dm-service/internal/rabbitmq"
	"dm-service/internal/repositories"
	"dm-service/internal/repositories/memory"
	"dm-service/internal/services"
	"dm-service/internal/storage"
	"dm-service/internal/telemetry"
	"dm-service/internal/tracing"
	"dm-service/internal/ws"
)

const serviceName = "dm-service"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog, err := logger.New(!cfg.Production())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint, zlog)
	if err != nil {
		zlog.Fatal("failed to init tracing", zap.Error(err))
	}

	deps, database := buildStores(ctx, cfg, zlog)
	if database != nil {
		defer database.Close()
	}
	deps.Gate = buildGate(ctx, cfg, zlog)
	deps.Blobs = buildBlobs(ctx, cfg, zlog)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, zlog)
	defer publisher.Close()
	zlog.Info("event publisher ready", zap.String("mode", rabbitmq.PublisherMode(publisher)))

	dispatcher := notifications.NewDispatcher(publisher, cfg.NotifyRouting, cfg.NotifyQueueSize, cfg.NotifyWorkers, zlog)
	dispatcher.Start()
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment, zlog)
	hub := ws.NewHub(publisher, zlog)

	deps.Notifier = dispatcher
	deps.Broadcaster = hub
	deps.Audit = auditEmitter
	deps.Log = zlog
	svc := services.New(deps, services.Options{
		PageSizeDefault: cfg.PageSizeDefault,
		PageSizeMax:     cfg.PageSizeMax,
		SnapDefaultTTL:  cfg.SnapDefaultTTL,
		SnapMaxTTL:      cfg.SnapMaxTTL,
		ViewOnceDwell:   cfg.ViewOnceDwell,
	})

	tokens, err := auth.NewJWTValidator(cfg.JWTSecret)
	if err != nil {
		zlog.Fatal("invalid jwt configuration", zap.Error(err))
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	chatHandler := handlers.NewChatHandler(svc, zlog)
	authed := router.Group("/", middleware.AuthMiddleware(tokens))
	chatHandler.Register(authed)
	handlers.RegisterDebugRoutes(authed, auditEmitter, cfg.DebugRoutes)
	router.PATCH("/admin/messages/:id/hidden", middleware.AdminMiddleware(cfg.AdminToken), chatHandler.HideMessage)
	router.GET("/ws/conversations/:id", ws.NewChatWebSocketHandler(hub, deps.Conversations, tokens, zlog).Handle)
	if mem, ok := deps.Blobs.(*storage.MemoryStore); ok {
		router.GET("/media/*ref", handlers.ServeBlob(mem))
	}

	grpcSrv := grpcserver.New(zlog)
	var pinger grpcserver.Pinger
	if database != nil {
		pinger = database
	}
	go grpcSrv.Watch(ctx, pinger, 10*time.Second)
	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			zlog.Fatal("failed to listen grpc", zap.Error(err))
		}
		zlog.Info("grpc health server listening", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			zlog.Error("grpc server stopped", zap.Error(err))
		}
	}()

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		zlog.Info("http server listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.Stop()
	svc.Shutdown()
	dispatcher.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		zlog.Warn("tracing shutdown", zap.Error(err))
	}
}

// buildStores returns the repositories for cfg.Store and, for postgres, the open database.
func buildStores(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (services.Deps, *sqlx.DB) {
	if cfg.Store == "memory" {
		store := memory.NewStore()
		zlog.Warn("using in-memory store; data is lost on restart")
		return services.Deps{
			Conversations: store,
			Messages:      store,
			Receipts:      store,
			SnapViews:     store,
			Profiles:      store,
		}, nil
	}

	database, err := db.Connect(ctx, cfg.DBDSN, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to db", zap.Error(err))
	}
	return services.Deps{
		Conversations: repositories.NewChatRepo(database),
		Messages:      repositories.NewMessageRepo(database),
		Receipts:      repositories.NewReceiptRepo(database),
		SnapViews:     repositories.NewSnapViewRepo(database),
		Profiles:      repositories.NewProfileRepo(database),
	}, database
}

func buildGate(ctx context.Context, cfg *config.Config, zlog *zap.Logger) services.ModerationGate {
	if cfg.RedisAddr == "" {
		zlog.Warn("redis disabled, moderation flags kept in process")
		return moderation.NewMemoryGate()
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return moderation.NewRedisGate(rdb)
}

func buildBlobs(ctx context.Context, cfg *config.Config, zlog *zap.Logger) services.BlobStore {
	if cfg.S3Bucket == "" {
		zlog.Warn("s3 bucket not configured, media kept in process")
		return storage.NewMemoryStore("http://localhost:" + cfg.Port + "/media")
	}
	store, err := storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3PresignTTL)
	if err != nil {
		zlog.Fatal("failed to init s3", zap.Error(err))
	}
	return store
}
