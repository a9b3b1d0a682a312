package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/burhanit11/youtubechannel-backend/pkg/database"
	"github.com/burhanit11/youtubechannel-backend/pkg/health"
	"github.com/burhanit11/youtubechannel-backend/pkg/httpclient"
	pkgkafka "github.com/burhanit11/youtubechannel-backend/pkg/kafka"
	"github.com/burhanit11/youtubechannel-backend/pkg/tracing"
	"github.com/burhanit11/youtubechannel-backend/internal/auth"
	"github.com/burhanit11/youtubechannel-backend/internal/config"
	"github.com/burhanit11/youtubechannel-backend/internal/event"
	handler "github.com/burhanit11/youtubechannel-backend/internal/handler/http"
	"github.com/burhanit11/youtubechannel-backend/internal/media"
	"github.com/burhanit11/youtubechannel-backend/internal/repository/postgres"
	"github.com/burhanit11/youtubechannel-backend/internal/service"
	"github.com/burhanit11/youtubechannel-backend/migrations"
)

// App wires together all dependencies and runs the user service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	cache          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "user",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	pgCfg.MaxConns = cfg.DBMaxConns

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "user")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Connect to Redis for channel page caching.
	cache, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Media host client, behind a circuit breaker so a struggling media
	// host fails registration uploads fast instead of piling up requests.
	mediaHTTP := httpclient.New(httpclient.DefaultConfig())
	mediaCB := httpclient.NewCircuitBreakerClient(
		mediaHTTP,
		httpclient.DefaultCircuitBreakerConfig("media-host"),
		logger,
	)
	uploader := media.NewClient(mediaCB, cfg.MediaBaseURL, logger)

	// Build the dependency graph.
	tokens := auth.NewTokenManager(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessExpiry(),
		cfg.RefreshExpiry(),
	)
	userRepo := postgres.NewUserRepository(pool)
	historyRepo := postgres.NewWatchHistoryRepository(pool)
	subRepo := postgres.NewSubscriptionRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	userService := service.NewUserService(
		userRepo,
		historyRepo,
		subRepo,
		tokens,
		uploader,
		cache,
		eventProducer,
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return cache.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(userService, userRepo, tokens, healthHandler, logger, handler.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		cache:          cache,
		producer:       producer,
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
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
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

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.cache.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
