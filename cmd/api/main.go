// Package main provides the entrypoint for the StepFree API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/api"
	"github.com/stepfree/stepfree/internal/api/middleware"
	"github.com/stepfree/stepfree/internal/database"
	"github.com/stepfree/stepfree/internal/featureflags"
	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/planner"
	"github.com/stepfree/stepfree/internal/provider/resilience"
	"github.com/stepfree/stepfree/internal/routing"
	"github.com/stepfree/stepfree/internal/routing/openrouteservice"
	"github.com/stepfree/stepfree/internal/scoring"
	"github.com/stepfree/stepfree/internal/sidewalk"
	"github.com/stepfree/stepfree/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "stepfree-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting StepFree API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Obstacle store and feature flags: Postgres when configured,
	// in-memory otherwise.
	var (
		obstacleRepo obstacle.Repository     = obstacle.NewInMemoryRepository()
		flagRepo     featureflags.Repository = featureflags.NewInMemoryRepository()
	)
	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
	}

	if os.Getenv("DB_HOST") != "" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure database schema")
		}
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		obstacleRepo = obstacle.NewPostgresRepository(pool)
		flagRepo = featureflags.NewPostgresRepository(pool)
		routerCfg.DB = pool
	} else {
		log.Warn().Msg("DB_HOST not set, using in-memory obstacle store")
	}

	flagService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
	})
	routerCfg.Flags = flagService

	obstacleService := obstacle.NewService(obstacle.ServiceConfig{
		Repository: obstacleRepo,
		Logger:     log,
	})
	log.Info().Msg("obstacle service initialized")

	// Routing provider behind retry + circuit breaker, tracked in the
	// health registry.
	registry := resilience.NewRegistry()
	orsClient := openrouteservice.NewClient(openrouteservice.ClientConfig{
		APIKey:   os.Getenv("ORS_API_KEY"),
		BaseURL:  os.Getenv("ORS_BASE_URL"),
		Registry: registry,
		Logger:   log,
	})
	routingService := routing.NewService(routing.ServiceConfig{
		Provider: orsClient,
		Logger:   log,
	})
	log.Info().Str("provider", routingService.ProviderName()).Msg("routing service initialized")

	engine := scoring.NewEngine(scoring.EngineConfig{Logger: log})
	selector := planner.NewSelector(planner.SelectorConfig{
		Engine: engine,
		Logger: log,
	})
	optimizer := sidewalk.NewOptimizer(sidewalk.OptimizerConfig{
		Engine: engine,
		Logger: log,
	})
	log.Info().Msg("scoring pipeline initialized")

	routerCfg.RoutingService = routingService
	routerCfg.ObstacleService = obstacleService
	routerCfg.Selector = selector
	routerCfg.Optimizer = optimizer
	routerCfg.ProviderRegistry = registry

	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
