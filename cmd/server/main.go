package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/immoflow/reconcile/internal/adapter/http"
	"github.com/immoflow/reconcile/internal/adapter/http/handler"
	"github.com/immoflow/reconcile/internal/adapter/http/middleware"
	postgresRepo "github.com/immoflow/reconcile/internal/adapter/repository/postgres"
	redisRepo "github.com/immoflow/reconcile/internal/adapter/repository/redis"
	"github.com/immoflow/reconcile/internal/infrastructure/auth"
	"github.com/immoflow/reconcile/internal/infrastructure/config"
	"github.com/immoflow/reconcile/internal/infrastructure/eventpublisher"
	"github.com/immoflow/reconcile/internal/infrastructure/logger"
	"github.com/immoflow/reconcile/internal/infrastructure/metrics"
	"github.com/immoflow/reconcile/internal/infrastructure/postgres"
	"github.com/immoflow/reconcile/internal/infrastructure/redis"
	"github.com/immoflow/reconcile/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger
	zerolog.DefaultContextLogger = &appLogger

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Metrics
	m := metrics.New()
	go trackPoolStats(ctx, pool, m)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	ruleRepo := postgresRepo.NewRuleRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	retrier := postgresRepo.NewRetrier(appLogger)
	idGen := postgresRepo.NewULIDGenerator()
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)

	// Initialize use cases
	matchUC := usecase.NewMatchUseCase(txManager, transactionRepo, ruleRepo, outboxRepo, auditRepo, idGen, retrier, appLogger)
	applyUC := usecase.NewRuleApplyUseCase(txManager, transactionRepo, ruleRepo, outboxRepo, auditRepo, idGen, retrier, appLogger)
	ruleUC := usecase.NewRuleUseCase(ruleRepo, auditRepo, idGen, cache, appLogger)
	transactionUC := usecase.NewTransactionUseCase(transactionRepo)
	userUC := usecase.NewUserUseCase(userRepo, idGen)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		MatchHandler:       handler.NewMatchHandler(matchUC, m),
		RuleHandler:        handler.NewRuleHandler(ruleUC, applyUC, m),
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		AuthHandler:        handler.NewAuthHandler(userUC, jwtManager, auditRepo),
		UserHandler:        handler.NewUserHandler(userUC),
		AuditHandler:       handler.NewAuditHandler(auditRepo),
		HealthHandler:      handler.NewHealthHandler(pool, redisClient),
		JWTManager:         jwtManager,
		IdempotencyStore:   idempotencyStore,
		RateLimiter:        middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		Logger:             appLogger,
	})

	// Outbox publisher
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewRedisPublisher(redisClient, cfg.OutboxChannel),
		Logger:     appLogger,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
	})
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && publisherCtx.Err() == nil {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopPublisher()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// trackPoolStats exports pgx pool statistics until the context ends.
func trackPoolStats(ctx context.Context, pool *pgxpool.Pool, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.DBConnections.Set(float64(pool.Stat().TotalConns()))
		}
	}
}
