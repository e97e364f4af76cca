package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/libs/config"
	"github.com/md-rashed-zaman/staybook/libs/db"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/staybook/libs/otel"
	"github.com/md-rashed-zaman/staybook/libs/runtime"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/availability"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/handlers"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/hosting"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/outbox"
	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "listing-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9095")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(service)
	if err != nil {
		panic(err)
	}
	otelCfg.Logger = logger
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	rawFormat, err := config.OneOf("AVAILABILITY_WIRE_FORMAT", string(availability.FormatObjects),
		string(availability.FormatObjects), string(availability.FormatFlat))
	if err != nil {
		panic(err)
	}
	format := availability.Format(rawFormat)
	loc, err := config.Location("AVAILABILITY_TIMEZONE", "UTC")
	if err != nil {
		panic(err)
	}
	draftTTL, err := config.Minutes("DRAFT_TTL_MINUTES", time.Hour)
	if err != nil {
		panic(err)
	}
	bookingLimit, err := config.Int("BOOKING_RATE_LIMIT_PER_MINUTE", 20)
	if err != nil {
		panic(err)
	}
	bodyLimit, err := config.Int64("REQUEST_BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		panic(err)
	}
	allowCredentials, err := config.Bool("CORS_ALLOW_CREDENTIALS", false)
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if strings.TrimSpace(brokers) != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var drafts hosting.DraftStore
	var bookingLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			redisDB = 0
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})

		drafts = hosting.NewRedisDraftStore(rdb, draftTTL, config.String("DRAFT_PREFIX", "listing:draft"), loc)
		failOpen, err := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
		if err != nil {
			failOpen = true
		}
		bookingLimitMW = httpx.NewRedisRateLimiter(rdb, bookingLimit, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking")).
			KeyedBy(auth.SessionKey).
			Middleware(logger, failOpen)
		logger.Info("drafts and booking rate limit backed by redis", "redis_addr", addr, "per_minute", bookingLimit)
	} else {
		drafts = hosting.NewMemoryDraftStore(draftTTL, loc)
		bookingLimitMW = httpx.NewRateLimiter(bookingLimit, time.Minute).KeyedBy(auth.SessionKey).Middleware()
		logger.Warn("REDIS_ADDR not set; drafts and booking rate limit are process-local")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Routes{
		Public:       handlers.NewPublicHandler(repo, loc, logger),
		Hosting:      handlers.NewHostingHandler(repo, drafts, format, loc, logger),
		Booking:      handlers.NewBookingHandler(repo, repo, loc, logger),
		Session:      auth.RequireSession(jwtSecret, logger),
		BookingLimit: bookingLimitMW,
	}.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"), allowCredentials)),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(10*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "listing")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := startGrpcServer(ctx, logger, service, grpcPort, db.ReadyCheck(pool)); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "wire_format", format, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
