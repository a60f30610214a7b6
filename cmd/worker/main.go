// Package main provides the entrypoint for the commute condition worker. The
// worker monitors the targets file, runs periodic sweeps and consumes job
// messages from Pub/Sub.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/response"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/bootstrap"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/config"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/notify"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/telemetry"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "commute-worker"

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := config.NewLogger(os.Stdout, serviceName, Version, cfg.LogLevel)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting commute worker")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, cfg.TelemetryFor(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providers := resilience.NewRegistry()
	scheduler, err := bootstrap.Scheduler(cfg, providers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create monitoring scheduler")
	}

	notifier, closeNotifier, err := bootstrap.Notifier(ctx, cfg.Notify, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create change notifier")
	}
	defer closeNotifier()
	scheduler.OnChange(notify.Callback(notifier, 10*time.Second, log))

	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start monitoring scheduler")
	}

	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config:  worker.SweepConfig{Concurrency: cfg.Worker.Concurrency},
		Checker: scheduler,
		Logger:  log.With().Str("component", "sweep").Logger(),
	})
	processor := worker.NewProcessor(worker.ProcessorConfig{
		SweepJob:    sweep,
		HealthCheck: worker.RegistryHealthCheck(providers),
		Logger:      log,
	})

	if cfg.Worker.SweepInterval > 0 {
		go sweep.RunEvery(ctx, cfg.Worker.SweepInterval)
		log.Info().Dur("interval", cfg.Worker.SweepInterval).Msg("periodic sweeps enabled")
	}

	if cfg.Worker.Subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Notify.PubSubProject,
			SubscriptionName: cfg.Worker.Subscription,
			Processor:        processor,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close pubsub handler")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	// Worker also exposes health endpoints for Cloud Run
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": Version,
			"targets": len(scheduler.Targets()),
		})
	})
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, sweep.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()
	scheduler.Stop()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
