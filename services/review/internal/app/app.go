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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sunil0336/MovieBuffs-sub000/pkg/auth"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/database"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/health"
	pkgkafka "github.com/sunil0336/MovieBuffs-sub000/pkg/kafka"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/middleware"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/tracing"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/config"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/domain"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/event"
	handler "github.com/sunil0336/MovieBuffs-sub000/services/review/internal/handler/http"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository/memory"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository/postgres"
	rediscache "github.com/sunil0336/MovieBuffs-sub000/services/review/internal/repository/redis"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/internal/service"
	"github.com/sunil0336/MovieBuffs-sub000/services/review/migrations"
)

// idempotencyTTL bounds how long a consumed event id is remembered.
const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	engines        []*service.Engine
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// storage is the repository pair backing every engine.
type storage struct {
	reviews    repository.ReviewRepository
	engagement repository.EngagementRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	store, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// Redis review cache.
	var cache repository.ReviewCache
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		cache = rediscache.NewReviewCache(client, cfg.CacheTTL)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("redis review cache enabled",
			slog.String("addr", cfg.RedisAddr),
			slog.Duration("ttl", cfg.CacheTTL),
		)
	}

	// Kafka producer.
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build one engine per item kind over the shared storage.
	purgers := make(map[domain.ItemKind]event.ItemPurger, len(domain.ItemKinds))
	for _, kind := range domain.ItemKinds {
		engine := service.NewEngine(kind, service.Deps{
			Reviews:    store.reviews,
			Engagement: store.engagement,
			Cache:      cache,
			Publisher:  publisher,
			Policy:     cfg.Policy(),
			Logger:     logger,
		})
		a.engines = append(a.engines, engine)
		purgers[kind] = engine.Reviews
	}

	// Catalog deletion consumer.
	if cfg.KafkaEnabled {
		a.consumers = append(a.consumers, a.newCatalogConsumer(event.NewConsumer(purgers, logger)))
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:   config.ServiceName,
		Engines:       a.engines,
		Health:        healthHandler,
		Metrics:       promhttp.Handler(),
		Identity:      identityResolver(cfg),
		CORS:          cfg.CORS,
		VoteRateLimit: cfg.VoteRateLimit,
		VoteBurst:     cfg.VoteBurst,
		PprofCIDRs:    cfg.PprofAllowedCIDRs,
		RatingMaxAge:  cfg.RatingMaxAge,
		Logger:        logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) initStorage(ctx context.Context, healthHandler *health.Handler) (*storage, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.StorageDriver == config.StorageMemory {
		seed, err := cfg.CatalogSeed()
		if err != nil {
			return nil, err
		}
		catalog := memory.NewCatalog()
		for _, item := range seed {
			catalog.Add(item.Kind, item.ID)
		}
		store := memory.NewStore(catalog)
		logger.Warn("using in-memory storage; data is lost on restart",
			slog.Int("catalog_items", len(seed)),
		)
		return &storage{reviews: store, engagement: store}, nil
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return &storage{
		reviews:    postgres.NewReviewRepository(pool),
		engagement: postgres.NewEngagementRepository(pool),
	}, nil
}

// newCatalogConsumer subscribes to upstream catalog deletions. Event ids are
// remembered in redis when available so redeliveries across restarts are
// skipped.
func (a *App) newCatalogConsumer(c *event.Consumer) *pkgkafka.Consumer {
	var store pkgkafka.IdempotencyStore
	if a.redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.redis, config.ServiceName+":consumed:", idempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	}

	consumerCfg := pkgkafka.ConsumerConfig{
		Brokers:    a.cfg.KafkaBrokers,
		GroupID:    a.cfg.KafkaGroupID,
		Topic:      event.TopicCatalogItemDeleted,
		MinBytes:   1,
		MaxBytes:   10e6, // 10 MB
		MaxRetries: 3,
		RetryDelay: time.Second,
		EnableDLQ:  true,
	}
	a.logger.Info("kafka consumer initialized",
		slog.String("topic", consumerCfg.Topic),
		slog.String("group_id", consumerCfg.GroupID),
	)
	return pkgkafka.NewConsumer(consumerCfg,
		pkgkafka.IdempotentHandler(store, c.HandleCatalogItemDeleted, a.logger), a.logger)
}

func identityResolver(cfg *config.Config) middleware.IdentityResolver {
	if cfg.IdentityMode == config.IdentityHeader {
		return middleware.HeaderResolver()
	}
	return middleware.JWTResolver(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry))
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers in background goroutines.
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", err.Error()))
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, Kafka
// consumers, tracer, Kafka producer, then the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases the producer and store connections that were opened.
func (a *App) closeResources() []error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
