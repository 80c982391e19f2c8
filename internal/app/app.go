package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mwynn/storefront/internal/auth"
	"github.com/mwynn/storefront/internal/config"
	"github.com/mwynn/storefront/internal/event"
	handler "github.com/mwynn/storefront/internal/handler/http"
	"github.com/mwynn/storefront/internal/mailer"
	"github.com/mwynn/storefront/internal/repository"
	mongorepo "github.com/mwynn/storefront/internal/repository/mongo"
	"github.com/mwynn/storefront/internal/repository/rediscache"
	"github.com/mwynn/storefront/internal/service"
	"github.com/mwynn/storefront/pkg/database"
	"github.com/mwynn/storefront/pkg/health"
	pkgkafka "github.com/mwynn/storefront/pkg/kafka"
	"github.com/mwynn/storefront/pkg/middleware"
	"github.com/mwynn/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	mongoClient    *mongo.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront-api",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Connect to MongoDB.
	mongoCfg := database.DefaultMongoConfig()
	mongoCfg.URI = cfg.MongoURI
	mongoCfg.Database = cfg.MongoDatabase

	mongoClient, err := database.NewMongoClient(ctx, mongoCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	db := mongoClient.Database(cfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		slog.String("database", cfg.MongoDatabase),
	)

	// Build repositories and indexes.
	userRepo := mongorepo.NewUserRepository(db)
	mongoProductRepo := mongorepo.NewProductRepository(db, cfg.CatalogPageSize)
	orderRepo := mongorepo.NewOrderRepository(db)

	for name, ensure := range map[string]func(context.Context) error{
		"users":    userRepo.EnsureIndexes,
		"products": mongoProductRepo.EnsureIndexes,
		"orders":   orderRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}

	// Redis product cache. Losing the cache only costs reads, so a failed
	// connection degrades to the uncached repository instead of aborting.
	var productRepo repository.ProductRepository = mongoProductRepo
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, product cache disabled",
			slog.String("error", err.Error()),
		)
		redisClient = nil
	} else {
		productRepo = rediscache.NewProductRepository(mongoProductRepo, redisClient, cfg.CacheTTL, logger)
		logger.Info("redis product cache enabled",
			slog.String("addr", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)),
		)
	}

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	publisher := event.NewKafkaPublisher(producer)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Outbound mail. Development without SMTP credentials logs instead of
	// sending so password-reset flows stay testable locally.
	var m mailer.Mailer
	if cfg.Environment == "development" && cfg.SMTPUser == "" {
		m = mailer.NewLogMailer(logger)
	} else {
		m = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	userService := service.NewUserService(userRepo, jwtManager, m, publisher, logger, cfg.ResetTokenTTL, cfg.AppBaseURL)
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("mongodb", func(ctx context.Context) error {
		return mongoClient.Ping(ctx, readpref.Primary())
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(userService, productService, orderService, healthHandler, logger, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: len(cfg.CORSAllowedOrigins) > 0 && cfg.CORSAllowedOrigins[0] != "*",
		},
		SessionCookie: handler.SessionCookieConfig{
			MaxAge: cfg.JWTExpiry,
			Secure: cfg.Environment == "production",
		},
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
		mongoClient:    mongoClient,
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

// Shutdown gracefully stops all components: drain HTTP, flush spans, close
// the Kafka producer, then disconnect MongoDB.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer mongoCancel()
	if err := a.mongoClient.Disconnect(mongoCtx); err != nil {
		a.logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
