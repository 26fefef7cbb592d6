package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/moni-del/dragon-d/internal/auth"
	"github.com/moni-del/dragon-d/internal/config"
	"github.com/moni-del/dragon-d/internal/event"
	"github.com/moni-del/dragon-d/internal/gate"
	handler "github.com/moni-del/dragon-d/internal/handler/http"
	"github.com/moni-del/dragon-d/internal/repository/postgres"
	redisrepo "github.com/moni-del/dragon-d/internal/repository/redis"
	"github.com/moni-del/dragon-d/internal/service"
	"github.com/moni-del/dragon-d/pkg/database"
	"github.com/moni-del/dragon-d/pkg/health"
	"github.com/moni-del/dragon-d/pkg/httpclient"
	"github.com/moni-del/dragon-d/pkg/i18n"
	pkgkafka "github.com/moni-del/dragon-d/pkg/kafka"
	"github.com/moni-del/dragon-d/pkg/middleware"
	"github.com/moni-del/dragon-d/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "dt-store"

// App wires together all dependencies and runs the store server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	usage          *service.UsageWriter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis client.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.Redis().Addr()),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	tracer := database.NewQueryTracer(cfg.SlowQueryThreshold, logger)
	discountRepo := postgres.NewDiscountRepository(pool, tracer)
	productRepo := postgres.NewProductRepository(pool, tracer)
	categoryRepo := postgres.NewCategoryRepository(pool, tracer)
	sessionRepo := redisrepo.NewSessionRepository(rdb, cfg.SessionTTL())
	productCache := redisrepo.NewProductCache(rdb, cfg.ProductCacheTTL)
	eventProducer := event.NewProducer(producer, logger)

	catalogService := service.NewCatalogService(productRepo, categoryRepo, productCache, eventProducer, logger)
	discountService := service.NewDiscountService(discountRepo, eventProducer, logger)
	usage := service.NewUsageWriter(discountRepo, cfg.UsageWriteTimeout, logger)
	sessionService := service.NewSessionService(service.SessionDeps{
		Sessions:  sessionRepo,
		Registry:  discountRepo,
		Products:  catalogService,
		Usage:     usage,
		Flying:    service.NewFlyingFeed(),
		Producer:  eventProducer,
		Logger:    logger,
		FlyingTTL: cfg.FlyingItemTTL,
		LockTTL:   cfg.ApplyLockTTL,
	})

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, cfg.SessionTTL())
	authService := service.NewAuthService(jwtManager, cfg.AdminEmail, cfg.AdminPasswordHash, logger)

	// Discord gate. Calls go through a circuit breaker so a Discord outage
	// fails fast instead of tying up request goroutines.
	if !cfg.DiscordConfigured() {
		logger.Warn("discord credentials not configured, shopper login will fail")
	}
	discordHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("discord"),
		logger,
	)
	discordClient := gate.NewClient(gate.Config{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURI:  cfg.DiscordRedirectURI,
		GuildID:      cfg.DiscordGuildID,
		BotToken:     cfg.DiscordBotToken,
		InviteURL:    cfg.DiscordInviteURL,
		APIBaseURL:   cfg.DiscordAPIBaseURL,
	}, discordHTTP, logger)
	gateService := gate.NewService(discordClient, cfg.DiscordInviteURL, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterDeps{
		Sessions:        sessionService,
		Catalog:         catalogService,
		Discounts:       discountService,
		Auth:            authService,
		Gate:            gateService,
		JWT:             jwtManager,
		Health:          healthHandler,
		Translator:      i18n.New(),
		DiscountLimiter: middleware.NewRateLimiter(cfg.DiscountRateLimit(), logger),
		LoginLimiter:    middleware.NewRateLimiter(cfg.LoginRateLimit(), logger),
		GateConfig: handler.GateConfig{
			ClientURL:    cfg.ClientURL,
			SecureCookie: cfg.IsProduction(),
		},
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			ExposedHeaders:   []string{middleware.CorrelationIDHeader},
			AllowCredentials: true,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		usage:          usage,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Usage writes started by those requests
// 3. Tracer (flush pending spans)
// 4. Kafka producer
// 5. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Let pending usage increments reach the registry before the pool closes.
	usageCtx, usageCancel := context.WithTimeout(context.Background(), a.cfg.UsageWriteTimeout)
	defer usageCancel()
	if err := a.usage.Drain(usageCtx); err != nil {
		a.logger.Error("usage writes did not drain", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 3. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close stores.
	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
