package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/cashdesk/internal/adapter/accounting"
	httpAdapter "github.com/iho/cashdesk/internal/adapter/http"
	"github.com/iho/cashdesk/internal/adapter/http/handler"
	"github.com/iho/cashdesk/internal/adapter/http/middleware"
	"github.com/iho/cashdesk/internal/adapter/notification"
	postgresRepo "github.com/iho/cashdesk/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cashdesk/internal/adapter/repository/redis"
	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/infrastructure/config"
	"github.com/iho/cashdesk/internal/infrastructure/eventpublisher"
	"github.com/iho/cashdesk/internal/infrastructure/logger"
	"github.com/iho/cashdesk/internal/infrastructure/metrics"
	natsinfra "github.com/iho/cashdesk/internal/infrastructure/nats"
	"github.com/iho/cashdesk/internal/infrastructure/postgres"
	"github.com/iho/cashdesk/internal/infrastructure/redis"
	"github.com/iho/cashdesk/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.New()

	if cfg.AutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log).Up(); err != nil {
			return err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	publisher, natsConn, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	// Repositories
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	operationRepo := postgresRepo.NewOperationRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	directory := redisRepo.NewDirectoryCache(
		postgresRepo.NewDirectoryRepository(pool),
		redisRepo.NewCache(redisClient, cfg.DirectoryPrefix),
		cfg.DirectoryTTL,
		log,
	)

	deps := usecase.Deps{
		TxManager:  postgresRepo.NewTxManager(pool),
		Ledgers:    ledgerRepo,
		Operations: operationRepo,
		Outbox:     outboxRepo,
		Audit:      postgresRepo.NewAuditRepository(pool),
		Reconciler: newReconciler(cfg),
		IDGen:      postgresRepo.NewULIDGenerator(),
		Retrier: postgresRepo.NewRetrier(postgresRepo.RetrierConfig{
			MaxRetries:      cfg.TxMaxRetries,
			InitialInterval: cfg.TxRetryBaseDelay,
			MaxInterval:     time.Second,
			MaxElapsedTime:  cfg.TxTimeout,
		}, log, m),
		Metrics:   m,
		Logger:    log,
		TxTimeout: cfg.TxTimeout,
	}

	// Use cases
	cashUC, err := usecase.NewCashLedgerUseCase(deps)
	if err != nil {
		return err
	}
	exchangeUC, err := usecase.NewExchangeUseCase(usecase.ExchangeDeps{
		Deps:    deps,
		Changes: postgresRepo.NewChangeRepository(pool),
	})
	if err != nil {
		return err
	}
	ledgerUC, err := usecase.NewLedgerUseCase(deps, directory)
	if err != nil {
		return err
	}
	reconcileUC, err := usecase.NewReconciliationUseCase(ledgerRepo, operationRepo)
	if err != nil {
		return err
	}
	replenishmentDeps := usecase.ReplenishmentDeps{
		Deps:      deps,
		Requests:  postgresRepo.NewReplenishmentRepository(pool),
		Directory: directory,
		Poster:    newPoster(cfg, log),
	}
	primaryUC, err := usecase.NewPrimaryReplenishment(replenishmentDeps)
	if err != nil {
		return err
	}
	subUC, err := usecase.NewSubReplenishment(replenishmentDeps)
	if err != nil {
		return err
	}

	// HTTP
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		LedgerHandler:        handler.NewLedgerHandler(ledgerUC, cashUC, reconcileUC, log),
		CashHandler:          handler.NewCashHandler(cashUC, exchangeUC, log),
		ReplenishmentHandler: handler.NewReplenishmentHandler(log, primaryUC, subUC),
		HealthHandler:        newHealthHandler(pool, redisClient, natsConn),
		IdempotencyStore:     redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:       cfg.IdempotencyTTL,
		RateLimiter:          rateLimiter,
		Metrics:              m,
		Gatherer:             prometheus.DefaultGatherer,
		Logger:               log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := outbox.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		rateLimiter.RunCleanup(gctx, time.Hour)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newReconciler(cfg *config.Config) usecase.Reconciler {
	if cfg.SubstituteStrategy == config.StrategyExact {
		return domain.ExactReconciler{MaxStates: cfg.ExactMaxStates}
	}
	return domain.GreedyReconciler{}
}

func newPoster(cfg *config.Config, log zerolog.Logger) usecase.AccountingPoster {
	if cfg.AccountingURL == "" {
		log.Warn().Msg("ACCOUNTING_URL not set, postings are only logged")
		return accounting.NewLogPoster(log)
	}
	return accounting.NewHTTPPoster(cfg.AccountingURL, cfg.AccountingTimeout, accounting.BreakerConfig{
		MaxFailures:      cfg.BreakerMaxFailures,
		OpenTimeout:      cfg.BreakerOpenTimeout,
		HalfOpenRequests: cfg.BreakerHalfOpenRequest,
	}, log)
}

// newPublisher connects to NATS when configured; otherwise outbox events are
// logged and marked published.
func newPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, *nats.Conn, error) {
	if cfg.NATSURL == "" {
		log.Warn().Msg("NATS_URL not set, outbox events are only logged")
		return eventpublisher.NewLogPublisher(log), nil, nil
	}

	conn, err := natsinfra.Connect(natsinfra.DefaultConfig(cfg.NATSURL), log)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("url", conn.ConnectedUrl()).Msg("connected to nats")

	return notification.NewNATSPublisher(conn, cfg.NATSSubject), conn, nil
}

func newHealthHandler(pool *pgxpool.Pool, redisClient *goredis.Client, conn *nats.Conn) *handler.HealthHandler {
	h := handler.NewHealthHandler(5*time.Second).
		AddCheck("postgres", pool.Ping).
		AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	if conn != nil {
		h.AddCheck("nats", func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}
	return h
}
