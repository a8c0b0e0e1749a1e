package main

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookwell/libs/config"
	"github.com/md-rashed-zaman/bookwell/libs/db"
	"github.com/md-rashed-zaman/bookwell/libs/httpx"
	"github.com/md-rashed-zaman/bookwell/libs/kafkax"
	otelx "github.com/md-rashed-zaman/bookwell/libs/otel"
	"github.com/md-rashed-zaman/bookwell/libs/runtime"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/grpcserver"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/occupancy"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/scheduling"
	"github.com/md-rashed-zaman/bookwell/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8088")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9098")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := config.Location("TIMEZONE", "UTC")
	if err != nil {
		logger.Error("invalid TIMEZONE", "err", err)
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.PoolConfig{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("AUTO_MIGRATE", true) {
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			logger.Error("schema migration failed", "err", err)
			panic(err)
		}
	}

	brokers := config.String("KAFKA_BROKERS", "")

	outboxRepo := outbox.NewRepository(pool)
	windowRepo := storage.NewWindowRepository(pool, outboxRepo, loc)
	reservationRepo := storage.NewReservationRepository(pool, loc)
	catalogRepo := storage.NewCatalogRepository(pool)
	tenantRepo := storage.NewTenantRepository(pool)

	svc := scheduling.NewService(
		windowRepo,
		catalogRepo,
		occupancy.NewResolver(reservationRepo, logger),
		scheduling.Config{Location: loc, Logger: logger},
	)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if brokers != "" {
		tenantConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   config.String("KAFKA_TENANT_TOPIC", "billing.tenant.status.v1"),
		}, consumer.TenantStatusHandler(tenantRepo, logger))
		go tenantConsumer.Run(ctx)
	} else {
		logger.Warn("tenant status consumer disabled (no kafka brokers configured)")
	}

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	publicLimit, rdb := publicRateLimit(logger)
	if rdb != nil {
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux, handlers.NewAvailabilityHandler(svc, logger), handlers.RouteConfig{
		Identity: handlers.RequireIdentity(handlers.IdentityConfig{
			JWTSecret:           config.String("JWT_SECRET", "dev-secret"),
			TrustGatewayHeaders: config.Bool("TRUST_GATEWAY_HEADERS", false),
		}),
		TenantAccess: handlers.RequireActiveTenant(tenantRepo, handlers.TenantFromIdentity, logger),
		PublicTenant: handlers.RequireActiveTenant(tenantRepo, handlers.TenantFromQuery, logger),
		PublicLimit:  publicLimit,
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 10))*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcserver.New(service, logger, checks...)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go grpcSrv.WatchReadiness(ctx, 5*time.Second)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.Stop()
	logger.Info("servers stopped")
}

// publicRateLimit limits anonymous slot queries per client IP. Redis is used
// when REDIS_ADDR is set so every replica shares one budget.
func publicRateLimit(logger *slog.Logger) (httpx.Middleware, *redis.Client) {
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if limitPerMinute <= 0 {
		return nil, nil
	}

	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
		limiter := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, "availability:slots", httpx.ClientIP)
		return limiter.Middleware(logger, true), rdb
	}

	logger.Info("rate limiting enabled (memory)", "per_minute", limitPerMinute)
	return httpx.NewRateLimiter(limitPerMinute, time.Minute, httpx.ClientIP).Middleware(), nil
}
