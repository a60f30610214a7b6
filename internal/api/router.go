// Package api provides the HTTP API of the commute optimizer.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/handler"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/middleware"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/explain"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/preference"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	RequireTLS  bool
	Metrics     *middleware.Metrics

	// Tokens validates bearer tokens (required).
	Tokens middleware.TokenValidator

	Engine    *ranking.Engine
	Generator *explain.Generator
	Profiles  *preference.Service

	// Scheduler enables the monitoring endpoints and condition-aware
	// explanations. Optional.
	Scheduler *monitor.Scheduler
	Providers *resilience.Registry
	Checks    map[string]handler.ReadinessCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "commute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	engine := cfg.Engine
	if engine == nil {
		engine = ranking.NewEngine(ranking.Config{})
	}
	generator := cfg.Generator
	if generator == nil {
		generator = explain.NewGenerator(explain.GeneratorConfig{Logger: cfg.Logger})
	}

	rankConfig := handler.RankHandlerConfig{
		Engine:    engine,
		Generator: generator,
		Profiles:  cfg.Profiles,
		Logger:    cfg.Logger,
	}
	if cfg.Scheduler != nil {
		rankConfig.Conditions = cfg.Scheduler.Detector()
	}

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Providers: cfg.Providers,
		Scheduler: cfg.Scheduler,
		Checks:    cfg.Checks,
	})
	rankHandler := handler.NewRankHandler(rankConfig)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Tokens)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByCaller(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByCaller(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Ranking endpoints (authenticated) - expensive compute, strict rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(expensiveRateLimit)
			r.Post("/routes:rank", rankHandler.Rank)
			r.Post("/routes:compare", rankHandler.Compare)
			r.Post("/routes:impact", rankHandler.Impact)
		})

		// Preference profiles (authenticated) - caller-based rate limiting
		if cfg.Profiles != nil {
			profileHandler := handler.NewProfileHandler(cfg.Profiles, cfg.Logger)
			r.Route("/me/profiles", func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RequireScope(middleware.ScopeProfiles))
				r.Use(standardRateLimit)
				r.Get("/", profileHandler.ListProfiles)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", profileHandler.GetProfile)
					r.Put("/", profileHandler.PutProfile)
					r.Delete("/", profileHandler.DeleteProfile)
					r.Post("/default", profileHandler.SetDefaultProfile)
				})
			})
		}

		// Monitoring endpoints (authenticated, monitor scope)
		if cfg.Scheduler != nil {
			monitoringHandler := handler.NewMonitoringHandler(cfg.Scheduler, cfg.Logger)
			r.Route("/monitoring", func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RequireScope(middleware.ScopeMonitor))
				r.Use(standardRateLimit)
				r.Get("/thresholds", monitoringHandler.GetThresholds)
				r.Get("/changes", monitoringHandler.ListChanges)
				r.Route("/targets", func(r chi.Router) {
					r.Get("/", monitoringHandler.ListTargets)
					r.Post("/", monitoringHandler.CreateTarget)
					r.Route("/{targetId}", func(r chi.Router) {
						r.Get("/", monitoringHandler.GetTarget)
						r.Delete("/", monitoringHandler.DeleteTarget)
						r.With(expensiveRateLimit).Post("/check", monitoringHandler.CheckTarget)
					})
				})
			})
		}
	})

	return r
}
