package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/ChefStevePopp/cheflife-sync/config"
	memberrepo "github.com/ChefStevePopp/cheflife-sync/internal/repositories/member"
	"github.com/ChefStevePopp/cheflife-sync/pkg/database"
	"github.com/ChefStevePopp/cheflife-sync/pkg/events"
	"github.com/ChefStevePopp/cheflife-sync/pkg/httpclient"
	"github.com/ChefStevePopp/cheflife-sync/pkg/kafka"
	"github.com/ChefStevePopp/cheflife-sync/pkg/matching"
	"github.com/ChefStevePopp/cheflife-sync/pkg/middleware"
	"github.com/ChefStevePopp/cheflife-sync/pkg/provider"
	"github.com/ChefStevePopp/cheflife-sync/pkg/reconcile"
	"github.com/ChefStevePopp/cheflife-sync/pkg/redis"
	"github.com/ChefStevePopp/cheflife-sync/pkg/routes/health"
	reconcileroutes "github.com/ChefStevePopp/cheflife-sync/pkg/routes/reconcile"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing"
	"github.com/ChefStevePopp/cheflife-sync/pkg/tracing/exporters"
	"github.com/ChefStevePopp/cheflife-sync/pkg/wages"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer func() { _ = zapLogger.Sync() }()

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			zapLogger.Info(fmt.Sprintf("%+v", msg))
			return
		}
		zapLogger.Info(string(data))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to set up tracing")
			os.Exit(1)
		}
		defer shutdown()
	}

	// Database
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer sqlxDB.Close()
	database.Configure(sqlxDB, database.Config{
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
	db := database.NewDatabaseInstance(sqlxDB, logger)

	// Migrations
	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to create migration driver")
		os.Exit(1)
	}
	migrationService := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	if err := migrationService.Migrate(cfg.DatabaseName, driver); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	// Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		os.Exit(1)
	}
	defer redisClient.Close()
	locker := redis.NewLocker(redisClient, "")
	wageCache := redis.NewCache(redisClient, "wages:", cfg.WageCacheTTL)

	// Kafka
	var emitter reconcile.LinkEmitter
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	// Provider
	httpClientCfg := httpclient.DefaultConfig()
	httpClientCfg.Timeout = cfg.ProviderRequestTimeout
	providerClient := provider.NewClient(httpclient.NewClient(httpClientCfg, logger), provider.Config{
		Name:      cfg.ProviderName,
		BaseURL:   cfg.ProviderBaseURL,
		APIKey:    cfg.ProviderAPIKey,
		CompanyID: cfg.ProviderCompanyID,
	}, logger)
	wageFetcher := wages.NewFetcher(providerClient, wageCache, cfg.WageFetchWorkers, logger)

	// Matching + service
	engine := matching.NewEngine(logger, matching.EngineConfig{
		FirstNameWeight:  cfg.MatchFirstNameWeight,
		LastNameWeight:   cfg.MatchLastNameWeight,
		SuggestThreshold: cfg.MatchSuggestThreshold,
	})
	service := reconcile.NewService(
		memberrepo.NewRepository(db, logger),
		providerClient,
		engine,
		wageFetcher,
		emitter,
		locker,
		logger,
	)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	if err := ectoinject.RegisterInstance[*reconcile.Service](container, service); err != nil {
		logger.WithError(err).Error("Failed to register service")
		os.Exit(1)
	}

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx, err := ectoinject.SetActiveContainer(req.Context(), container.GetContainerID())
			if err != nil {
				return err
			}
			c.SetRequest(req.WithContext(reqCtx))
			return next(c)
		}
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	checker := health.NewChecker(sqlxDB, redisClient, version)
	checker.RegisterRoutes(e)

	reconcileroutes.Register(e.Group("/api/v1/reconcile"))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	go func() {
		checker.SetReady(true)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	checker.SetReady(false)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server gracefully")
	}
}

func newZapLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.PrettyLogs {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func setupTracing(ctx context.Context, cfg config.Config) (func(), error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TracingExporter {
	case "grpc", "http":
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.TracingExporter,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
	default:
		exporter = &exporters.ConsoleExporter{}
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.AppName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}
