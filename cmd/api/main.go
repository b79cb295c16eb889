// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/repuestospro/backend/internal/admin"
	"github.com/repuestospro/backend/internal/auth"
	"github.com/repuestospro/backend/internal/catalog"
	"github.com/repuestospro/backend/internal/config"
	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/events"
	"github.com/repuestospro/backend/internal/health"
	"github.com/repuestospro/backend/internal/media"
	"github.com/repuestospro/backend/internal/middleware"
	"github.com/repuestospro/backend/internal/notification"
	"github.com/repuestospro/backend/internal/order"
	"github.com/repuestospro/backend/internal/product"
	"github.com/repuestospro/backend/internal/promotion"
	"github.com/repuestospro/backend/internal/registration"
	"github.com/repuestospro/backend/internal/server"
	"github.com/repuestospro/backend/internal/store"
	"github.com/repuestospro/backend/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		// The migrator is not closed: its Close also closes the shared pool.
		migrator, migErr := core.NewMigrator(db.DB.DB, cfg.Database.MigrationsPath, logger)
		if migErr != nil {
			return migErr
		}
		if migErr := migrator.Up(); migErr != nil {
			return migErr
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	var (
		storage      media.Storage
		storageCheck health.Checker
	)
	if cfg.Storage.Enabled() {
		s3, s3Err := media.NewS3Storage(ctx, cfg.Storage)
		if s3Err != nil {
			return s3Err
		}
		if bucketErr := s3.EnsureBucket(ctx); bucketErr != nil {
			logger.Warn("object storage bucket not verified", "error", bucketErr)
		}
		storage, storageCheck = s3, s3
		logger.Info("object storage configured", "bucket", cfg.Storage.Bucket)
	} else {
		logger.Warn("object storage not configured, image uploads disabled")
	}
	uploader := media.NewUploader(storage, cfg.Storage.MaxUploadBytes)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, cfg.Loyalty.PointValueDecimal())
	userHandler := user.NewHandler(userSvc)

	registrationSvc := registration.NewService(registration.NewRepository(db.DB))
	registrationHandler := registration.NewHandler(registrationSvc)

	authSvc := auth.NewService(auth.Deps{
		Repo:      auth.NewRepository(db.DB),
		JWT:       jwtManager,
		Users:     userSvc,
		Tokens:    auth.NewRedisTokenStore(redis.Client),
		Codes:     registrationSvc,
		TwoFactor: cfg.TwoFactor,
	})
	authHandler := auth.NewHandler(authSvc)

	storeSvc := store.NewService(store.NewRepository(db.DB), userSvc, uploader)
	storeHandler := store.NewHandler(storeSvc, uploader)

	catalogSvc := catalog.NewService(
		catalog.NewRepository(db.DB),
		core.NewCache(redis.Client, "catalog:"),
		cfg.Catalog.CacheTTL,
	)
	catalogHandler := catalog.NewHandler(catalogSvc)

	promotionSvc := promotion.NewService(promotion.NewRepository(db.DB), storeSvc)
	promotionHandler := promotion.NewHandler(promotionSvc)

	productSvc := product.NewService(product.Deps{
		Repo:    product.NewRepository(db.DB),
		Stores:  storeSvc,
		Catalog: catalogSvc,
		Pricer:  promotionSvc,
		Images:  uploader,
	})
	productHandler := product.NewHandler(productSvc, uploader)

	notificationSvc := notification.NewService(notification.NewRepository(db.DB))
	notificationHandler := notification.NewHandler(notificationSvc)

	mux := events.NewMux()
	notification.NewSubscriber(notificationSvc, storeSvc).Register(mux)

	var (
		publisher   events.Publisher
		brokerCheck health.Checker
		amqpPub     *events.AMQPPublisher
	)
	if cfg.Events.AMQPURL != "" {
		amqpPub, err = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		publisher, brokerCheck = amqpPub, amqpPub
		logger.Info("publishing order events to broker", "exchange", cfg.Events.Exchange)
	} else {
		publisher = events.NewInlinePublisher(mux.Dispatch, logger)
		logger.Info("no broker configured, handling order events in process")
	}

	orderSvc := order.NewService(order.Deps{
		Repo:      order.NewRepository(db.DB),
		Stores:    storeSvc,
		Users:     userSvc,
		Pricer:    promotionSvc,
		Publisher: publisher,
		Pricing:   order.PricingFromConfig(cfg.Loyalty),
	})
	orderHandler := order.NewHandler(orderSvc)

	deps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}
	if storageCheck != nil {
		deps = append(deps, health.Dependency{Name: "storage", Checker: storageCheck, Optional: true})
	}
	if brokerCheck != nil {
		deps = append(deps, health.Dependency{Name: "broker", Checker: brokerCheck, Optional: true})
	}
	healthHandler := health.NewHandler(deps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DB:    db,
		Redis: redis,
		Repo:  admin.NewRepository(db.DB),
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	if telemetry.Enabled() {
		router.Use(middleware.Tracing(cfg.Otel.ServiceName))
	}
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	tiered := middleware.TieredRateLimiter(redis.Client, middleware.DefaultTiers)
	verify := middleware.Authenticator(authSvc)
	authenticator := func(next http.Handler) http.Handler {
		return verify(tiered(next))
	}
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin

	sensitive := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(10, 5),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: true,
	}).Handler

	router.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, sensitive)
		registrationHandler.RegisterRoutes(r)

		userHandler.RegisterRoutes(r, authenticator)
		storeHandler.RegisterRoutes(r, authenticator, optionalAuth)
		catalogHandler.RegisterRoutes(r)
		productHandler.RegisterRoutes(r, authenticator, optionalAuth)
		promotionHandler.RegisterRoutes(r, authenticator)
		orderHandler.RegisterRoutes(r, authenticator)
		notificationHandler.RegisterRoutes(r, authenticator)

		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		registrationHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		catalogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		orderHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if amqpPub != nil {
		if err := amqpPub.Close(); err != nil {
			logger.Error("broker close error", "error", err)
		}
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
