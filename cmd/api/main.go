// Package main provides the entrypoint for the commute optimizer API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/handler"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/middleware"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/auth"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/bootstrap"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/config"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/database"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/explain"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/notify"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/preference"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "commute-api"

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	// Setup structured logging
	log := config.NewLogger(os.Stdout, serviceName, Version, cfg.LogLevel)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting commute API")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, cfg.TelemetryFor(serviceName, Version))
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

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	checks := map[string]handler.ReadinessCheck{}

	// Preference profiles live in PostgreSQL when configured, in memory otherwise
	var profileRepo preference.Repository
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database.Config)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgRepo := preference.NewPostgresRepository(pool)
		if err := pgRepo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate preference schema")
		}
		profileRepo = pgRepo
		checks["database"] = pool.Ping
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		profileRepo = preference.NewInMemoryRepository()
		log.Warn().Msg("no database configured - preference profiles are kept in memory")
	}
	profiles := preference.NewService(profileRepo)

	if cfg.UsesDevSigningKey() {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})

	engine := ranking.NewEngine(ranking.Config{Scaling: cfg.Ranking.Scaling})
	generator := explain.NewGenerator(explain.GeneratorConfig{
		Logger: log.With().Str("component", "explain").Logger(),
	})

	// Monitoring is optional: without a condition source the endpoints are not mounted
	providers := resilience.NewRegistry()
	scheduler, err := bootstrap.Scheduler(cfg, providers, log)
	switch {
	case errors.Is(err, bootstrap.ErrNoSources):
		log.Warn().Msg("no condition source configured - monitoring disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create monitoring scheduler")
	default:
		notifier, closeNotifier, err := bootstrap.Notifier(ctx, cfg.Notify, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create change notifier")
		}
		defer closeNotifier()
		scheduler.OnChange(notify.Callback(notifier, 10*time.Second, log))

		monitor.NewTrigger(monitor.TriggerConfig{
			OnRegenerate: func(records []conditions.ChangeRecord) {
				log.Info().Int("changes", len(records)).Msg("route-affecting change, recommendations need regeneration")
			},
			OnRescore: func(records []conditions.ChangeRecord) {
				log.Info().Int("changes", len(records)).Msg("condition change, recommendations need re-scoring")
			},
			MinSignificance: scheduler.Detector().NotificationFloor(),
			Logger:          log,
		}).Attach(scheduler)

		if err := scheduler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start monitoring scheduler")
		}
		defer scheduler.Stop()
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		RequireTLS:  cfg.RequireTLS,
		Metrics:     metrics,
		Tokens:      tokens,
		Engine:      engine,
		Generator:   generator,
		Profiles:    profiles,
		Scheduler:   scheduler,
		Providers:   providers,
		Checks:      checks,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
