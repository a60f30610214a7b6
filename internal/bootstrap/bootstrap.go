// Package bootstrap assembles the monitoring stack shared by the API and
// worker binaries from process configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions/source"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/config"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/notify"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/worker"
)

// ErrNoSources is returned by Scheduler when no condition source is configured.
var ErrNoSources = errors.New("no condition source configured")

// Sources builds the condition source router. OpenWeatherMap serves weather
// and the JSON feed serves the remaining types. Each source's HTTP client
// is registered in reg together with the condition types it serves.
// Returns nil when nothing is configured.
func Sources(cfg config.SourcesConfig, reg *resilience.Registry, logger zerolog.Logger) *source.Router {
	var router *source.Router
	if cfg.OpenWeatherMapKey != "" {
		rc := providerClientConfig(source.OpenWeatherMapName, reg, logger)
		router = source.NewRouter().Handle(source.NewOpenWeatherMap(source.OpenWeatherMapConfig{
			APIKey:     cfg.OpenWeatherMapKey,
			HTTPClient: resilience.NewClient(rc),
			Logger:     logger.With().Str("source", source.OpenWeatherMapName).Logger(),
		}), conditions.TypeWeather)
		assign(reg, source.OpenWeatherMapName, conditions.TypeWeather)
	}
	if cfg.FeedURL != "" {
		rc := providerClientConfig(source.FeedName, reg, logger)
		if router == nil {
			router = source.NewRouter()
		}
		feed := source.NewFeed(source.FeedConfig{
			BaseURL:    cfg.FeedURL,
			HTTPClient: resilience.NewClient(rc),
			Logger:     logger.With().Str("source", source.FeedName).Logger(),
		})
		types := []conditions.Type{conditions.TypeTraffic, conditions.TypeTransit, conditions.TypeParking}
		if cfg.OpenWeatherMapKey == "" {
			types = append(types, conditions.TypeWeather)
		}
		router.Handle(feed, types...)
		assign(reg, source.FeedName, types...)
	}
	return router
}

func assign(reg *resilience.Registry, name string, types ...conditions.Type) {
	if reg != nil {
		reg.Assign(name, types...)
	}
}

func providerClientConfig(name string, reg *resilience.Registry, logger zerolog.Logger) resilience.ClientConfig {
	rc := resilience.DefaultClientConfig(name)
	rc.Registry = reg
	rc.CircuitBreaker.OnStateChange = resilience.LogStateChanges(logger, "provider circuit breaker changed state")
	return rc
}

// Scheduler builds a monitoring scheduler over the configured sources and
// thresholds and registers every target from the targets file. The
// scheduler is not started.
func Scheduler(cfg config.Config, reg *resilience.Registry, logger zerolog.Logger) (*monitor.Scheduler, error) {
	router := Sources(cfg.Sources, reg, logger)
	if router == nil {
		return nil, ErrNoSources
	}

	thresholds := conditions.DefaultThresholds()
	if cfg.Monitor.ThresholdsFile != "" {
		loaded, err := conditions.LoadThresholds(cfg.Monitor.ThresholdsFile)
		if err != nil {
			return nil, err
		}
		thresholds = loaded
	}

	s, err := monitor.NewScheduler(monitor.Config{
		Source: router,
		Detector: conditions.NewDetector(conditions.DetectorConfig{
			Thresholds: &thresholds,
			Logger:     logger.With().Str("component", "detector").Logger(),
		}),
		Logger: logger.With().Str("component", "scheduler").Logger(),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Monitor.TargetsFile == "" {
		return s, nil
	}
	targets, err := worker.LoadTargets(cfg.Monitor.TargetsFile)
	if err != nil {
		s.Stop()
		return nil, err
	}
	for _, t := range targets {
		if err := s.StartMonitoring(t); err != nil {
			s.Stop()
			return nil, fmt.Errorf("monitoring %s: %w", t.ID, err)
		}
	}
	logger.Info().
		Int("targets", len(targets)).
		Str("file", cfg.Monitor.TargetsFile).
		Msg("loaded monitoring targets")
	return s, nil
}

// Notifier builds the change record fan-out: always a log notifier, plus
// Pub/Sub and RabbitMQ when configured. The returned close function
// releases every connection.
func Notifier(ctx context.Context, cfg config.NotifyConfig, logger zerolog.Logger) (notify.Multi, func(), error) {
	notifiers := notify.Multi{notify.Log{Logger: logger.With().Str("notifier", "log").Logger()}}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PubSubTopic != "" {
		ps, err := notify.NewPubSub(ctx, notify.PubSubConfig{
			ProjectID: cfg.PubSubProject,
			Topic:     cfg.PubSubTopic,
			Logger:    logger,
		})
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := ps.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close pubsub notifier")
			}
		})
		notifiers = append(notifiers, ps)
	}

	if cfg.AMQPURL != "" {
		conn, ch, err := notify.DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			_ = ch.Close()   //nolint:errcheck // best effort on shutdown
			_ = conn.Close() //nolint:errcheck // best effort on shutdown
		})
		notifiers = append(notifiers, notify.NewAMQP(notify.AMQPConfig{
			Channel:  ch,
			Exchange: cfg.AMQPExchange,
			Logger:   logger,
		}))
	}

	return notifiers, closeAll, nil
}
