package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/zayana/storefront/pkg/database"
	"github.com/zayana/storefront/pkg/health"
	"github.com/zayana/storefront/pkg/httpclient"
	pkgkafka "github.com/zayana/storefront/pkg/kafka"
	"github.com/zayana/storefront/pkg/tracing"
	"github.com/zayana/storefront/services/relay/internal/config"
	"github.com/zayana/storefront/services/relay/internal/event"
	handler "github.com/zayana/storefront/services/relay/internal/handler/http"
	"github.com/zayana/storefront/services/relay/internal/repository/postgres"
	"github.com/zayana/storefront/services/relay/internal/repository/redis"
	"github.com/zayana/storefront/services/relay/internal/service"
	"github.com/zayana/storefront/services/relay/internal/whatsapp"
)

// App wires together all dependencies and runs the relay.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown

	background     context.Context
	stopBackground context.CancelFunc
	workers        sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, "relay", cfg.Environment, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.String("database", cfg.Postgres.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "relay"); err != nil {
		logger.Warn("register pool metrics", slog.String("error", err.Error()))
	}
	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	products := redis.NewCachedProductReader(postgres.NewProductRepository(pool), redisClient, cfg.ProductCacheTTL, logger)

	// A nil Sender disables delivery; the webhook and consumer keep running.
	var sender service.Sender
	var transport *httpclient.CircuitBreakerClient
	if cfg.DeliveryConfigured() {
		transport = whatsapp.NewTransport(cfg.HTTPClient, cfg.Breaker, logger)
		sender = whatsapp.NewClient(cfg.WhatsApp, transport)
		logger.Info("whatsapp delivery enabled", slog.String("breaker", cfg.Breaker.Name))
	} else {
		logger.Warn("whatsapp delivery disabled: token, phone number id or recipient missing")
	}

	notifier := service.NewNotificationService(products, sender, service.NotifyConfig{
		Recipient: cfg.AdminPhoneNumber,
		Location:  cfg.Location(),
		Timeout:   cfg.NotifyTimeout,
	}, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if transport != nil {
		healthHandler.RegisterOptional("whatsapp", transport.Check)
	}

	var consumer *pkgkafka.Consumer
	if cfg.ConsumeEvents {
		consumer = event.NewConsumer(cfg.Kafka, event.NewConsumerHandler(notifier, logger), redisClient, cfg.EventDedupeTTL, logger)
		brokers := cfg.Kafka.Brokers
		healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, brokers)
		})
		logger.Info("kafka consumer initialized",
			slog.String("topic", event.TopicOrderCreated),
			slog.String("group", cfg.Kafka.GroupID),
		)
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())

	webhook := handler.NewWebhookHandler(notifier, cfg.WhatsApp.VerifyToken, cfg.WebhookSecret, logger)
	router := handler.NewRouter(bgCtx, webhook, healthHandler, cfg.Limit, logger)

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
		redis:          redisClient,
		consumer:       consumer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
		background:     bgCtx,
		stopBackground: stopBackground,
	}, nil
}

// Run starts the consumer and the HTTP server and blocks until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if a.consumer != nil {
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			if err := a.consumer.Start(a.background); err != nil {
				a.logger.Error("kafka consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server, then the consumer, then flushes traces and
// closes Redis and PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.stopBackground()
	a.workers.Wait()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
