package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/time/rate"

	"retail-service/internal/api"
	"retail-service/internal/cache"
	"retail-service/internal/config"
	"retail-service/internal/consumer"
	"retail-service/internal/events"
	"retail-service/internal/ingest"
	"retail-service/internal/repository"
	"retail-service/internal/service"
	"retail-service/migrations"
)

const serviceName = "retail-service"

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.ApplyLogLevel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := config.ConnectMongo(ctx, cfg.MongoURI, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	db := client.Database(cfg.MongoDatabase)
	repository.EnsureIndexes(ctx, db)

	saleRepo := repository.NewSaleRepository(db)
	productRepo := repository.NewProductRepository(db)

	appCache := newCache(ctx, cfg)
	importLog := newImportLog(cfg)

	productService := service.NewProductService(productRepo)
	stockConsumer := consumer.NewConsumer(productService)

	// Without brokers, sale events are handled in-process.
	var publisher events.Publisher = events.NewLocalPublisher(stockConsumer)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaSalesTopic))
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		reader := config.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaSalesTopic, cfg.KafkaGroupID)
		defer reader.Close()
		go stockConsumer.Start(ctx, reader)
	}

	uploads := ingest.NewPipeline(saleRepo, ingest.NewNormalizer(ingest.UploadProfile), cfg.IngestBatchSize)
	salesService := service.NewSalesService(saleRepo, uploads, appCache, publisher, importLog, service.SalesOptions{
		MaxPageSize:   cfg.SalesMaxPageSize,
		UploadMaxRows: cfg.UploadMaxRows,
		CacheTTL:      cfg.CacheTTL,
	})
	orderService := service.NewOrderService(saleRepo, productService, appCache, publisher)
	dashboardService := service.NewDashboardService(saleRepo, appCache, cfg.CacheTTL)

	salesHandler := api.NewSalesHandler(salesService, dashboardService, orderService,
		api.UploadConfig{Dir: cfg.UploadDir, MaxBytes: cfg.UploadMaxBytes}, cfg.Production())
	orderHandler := api.NewOrderHandler(orderService, cfg.Production())
	productHandler := api.NewProductHandler(productService, cfg.Production())
	healthHandler := api.NewHealthHandler(serviceName, pingMongo(client))

	e := echo.New()
	e.HideBanner = true

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/api/health"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	apiGroup := e.Group("/api")
	salesHandler.Register(apiGroup.Group("/sales"))
	orderHandler.Register(apiGroup.Group("/orders"))
	productHandler.Register(apiGroup.Group("/products"))
	apiGroup.GET("/dashboard/stats", salesHandler.DashboardStats)

	e.GET("/health", healthHandler.Health)
	apiGroup.GET("/health", healthHandler.Health)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down server")
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
	}
}

// newCache returns a redis backed cache, or a no-op cache when redis is not configured or unreachable.
func newCache(ctx context.Context, cfg *config.Config) service.Cache {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("REDIS_ADDR not set, caching disabled")
		return cache.Noop{}
	}

	redisCache := cache.NewRedisCache(config.NewRedisClient(cfg.RedisAddr))
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msgf("Redis at %s unreachable, caching disabled", cfg.RedisAddr)
		return cache.Noop{}
	}
	return redisCache
}

// newImportLog returns the MySQL import audit log, or nil when none is configured.
func newImportLog(cfg *config.Config) service.ImportLog {
	if cfg.ImportLogDSN == "" {
		return nil
	}

	db, err := config.ConnectMySQL(cfg.ImportLogDSN, 5)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to import log database")
	}
	if err := migrations.AutoMigrateImportRuns(3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate import_runs table")
	}
	return repository.NewImportLogRepository(db)
}

func pingMongo(client *mongo.Client) api.Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}
