// Package api provides the HTTP API for StepFree.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/api/handler"
	"github.com/stepfree/stepfree/internal/api/middleware"
	"github.com/stepfree/stepfree/internal/featureflags"
	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/planner"
	"github.com/stepfree/stepfree/internal/provider/resilience"
	"github.com/stepfree/stepfree/internal/routing"
	"github.com/stepfree/stepfree/internal/sidewalk"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	RoutingService  *routing.Service
	ObstacleService *obstacle.Service
	Selector        *planner.Selector
	Optimizer       *sidewalk.Optimizer
	Crossings       []sidewalk.Crossing

	// Flags carries runtime kill switches; nil means all defaults.
	Flags *featureflags.Service

	// DB is the readiness-check pinger, nil when running without
	// Postgres.
	DB handler.Pinger

	// ProviderRegistry exposes routing provider health on the status
	// endpoint.
	ProviderRegistry *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stepfree-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB, cfg.ProviderRegistry)
	routeHandler := handler.NewRouteHandler(handler.RouteHandlerConfig{
		Routes:    cfg.RoutingService,
		Obstacles: cfg.ObstacleService,
		Selector:  cfg.Selector,
		Optimizer: cfg.Optimizer,
		Crossings: cfg.Crossings,
		Flags:     cfg.Flags,
		Logger:    cfg.Logger,
	})
	obstacleHandler := handler.NewObstacleHandler(cfg.ObstacleService, cfg.Flags, cfg.Logger)
	streamHandler := handler.NewStreamHandler(cfg.ObstacleService, cfg.Flags, cfg.Logger)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	reportRateLimit := middleware.RateLimitByIP(middleware.ReportRateLimit)       // 20 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Route computation - expensive, strict rate limiting
		r.With(expensiveRateLimit, middleware.ContentTypeJSON).
			Post("/routes:compute", routeHandler.ComputeRoutes)

		// Community obstacle reporting
		r.Route("/obstacles", func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.With(standardRateLimit).Get("/", obstacleHandler.ListObstacles)
			r.With(reportRateLimit).Post("/", obstacleHandler.ReportObstacle)
			r.Route("/{obstacleId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", obstacleHandler.GetObstacle)
				r.With(reportRateLimit).Post("/votes", obstacleHandler.VoteObstacle)
			})
		})

		// Live trip stream (websocket; no JSON content-type middleware,
		// the upgrade handshake owns the connection)
		r.Get("/trips/stream", streamHandler.Stream)
	})

	return r
}
