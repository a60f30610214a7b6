// Package config loads process configuration for the commute optimizer
// binaries from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/database"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/telemetry"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DevSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full process configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel zerolog.Level

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	Auth      AuthConfig
	Telemetry TelemetryConfig
	Database  DatabaseConfig
	Monitor   MonitorConfig
	Sources   SourcesConfig
	Notify    NotifyConfig
	Worker    WorkerConfig
	Ranking   RankingConfig
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
}

// DatabaseConfig configures optional PostgreSQL storage.
type DatabaseConfig struct {
	// Enabled is false when neither DATABASE_URL nor DB_HOST is set.
	Enabled bool
	database.Config
}

// MonitorConfig points at the monitoring definition files.
type MonitorConfig struct {
	// TargetsFile lists commutes monitored at startup (optional).
	TargetsFile string
	// ThresholdsFile overrides the default change thresholds (optional).
	ThresholdsFile string
}

// SourcesConfig configures condition sources. A source without its
// credential or URL is not registered.
type SourcesConfig struct {
	OpenWeatherMapKey string
	FeedURL           string
}

// NotifyConfig configures change record delivery.
type NotifyConfig struct {
	PubSubProject string
	PubSubTopic   string
	AMQPURL       string
	AMQPExchange  string
}

// WorkerConfig configures the background worker.
type WorkerConfig struct {
	// Subscription receives job messages. Empty disables the job consumer.
	Subscription string
	// SweepInterval is the cadence of full sweeps. Zero disables them.
	SweepInterval time.Duration
	Concurrency   int
}

// RankingConfig configures the scoring engine.
type RankingConfig struct {
	Scaling ranking.Scaling
}

// Load reads the given .env files (default ".env"), ignoring missing ones,
// and then builds the configuration from the environment. Variables already
// set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (Config, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return Config{}, fmt.Errorf("%w: LOG_LEVEL: %w", ErrInvalid, err)
	}
	sweep, err := time.ParseDuration(getEnv("WORKER_SWEEP_INTERVAL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: WORKER_SWEEP_INTERVAL: %w", ErrInvalid, err)
	}
	concurrency, err := strconv.Atoi(getEnv("WORKER_CONCURRENCY", "3"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: WORKER_CONCURRENCY: %w", ErrInvalid, err)
	}

	return Config{
		Env:      getEnv("APP_ENV", EnvDevelopment),
		Port:     getEnv("APP_PORT", "8080"),
		LogLevel: level,

		RequireTLS: os.Getenv("REQUIRE_TLS") == "true",
		Auth: AuthConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     getEnv("JWT_ISSUER", "https://commute.example.com"),
			Audience:   getEnv("JWT_AUDIENCE", "commute-api"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      os.Getenv("OTEL_ENABLED") == "true",
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		Database: DatabaseConfig{
			Enabled: database.Configured(),
			Config:  database.ConfigFromEnv(),
		},
		Monitor: MonitorConfig{
			TargetsFile:    os.Getenv("MONITOR_TARGETS_FILE"),
			ThresholdsFile: os.Getenv("MONITOR_THRESHOLDS_FILE"),
		},
		Sources: SourcesConfig{
			OpenWeatherMapKey: os.Getenv("OPENWEATHERMAP_API_KEY"),
			FeedURL:           os.Getenv("CONDITIONS_FEED_URL"),
		},
		Notify: NotifyConfig{
			PubSubProject: os.Getenv("PUBSUB_PROJECT_ID"),
			PubSubTopic:   os.Getenv("PUBSUB_CHANGES_TOPIC"),
			AMQPURL:       os.Getenv("AMQP_URL"),
			AMQPExchange:  os.Getenv("AMQP_EXCHANGE"),
		},
		Worker: WorkerConfig{
			Subscription:  os.Getenv("PUBSUB_JOBS_SUBSCRIPTION"),
			SweepInterval: sweep,
			Concurrency:   concurrency,
		},
		Ranking: RankingConfig{
			Scaling: ranking.Scaling(getEnv("RANKING_SCALING", string(ranking.ScalingAnchored))),
		},
	}, nil
}

// Validate checks cross-field constraints. In development a missing signing
// key is replaced with DevSigningKey.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("APP_PORT %q is not a number", c.Port))
	}
	if c.Auth.SigningKey == "" {
		if c.Env == EnvProduction {
			errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
		} else {
			c.Auth.SigningKey = DevSigningKey
		}
	}
	if c.Ranking.Scaling != ranking.ScalingAnchored && c.Ranking.Scaling != ranking.ScalingBatch {
		errs = append(errs, fmt.Errorf("RANKING_SCALING %q must be %q or %q",
			c.Ranking.Scaling, ranking.ScalingAnchored, ranking.ScalingBatch))
	}
	if c.Notify.PubSubTopic != "" && c.Notify.PubSubProject == "" {
		errs = append(errs, errors.New("PUBSUB_CHANGES_TOPIC requires PUBSUB_PROJECT_ID"))
	}
	if c.Worker.Subscription != "" && c.Notify.PubSubProject == "" {
		errs = append(errs, errors.New("PUBSUB_JOBS_SUBSCRIPTION requires PUBSUB_PROJECT_ID"))
	}
	if c.Worker.SweepInterval < 0 {
		errs = append(errs, errors.New("WORKER_SWEEP_INTERVAL must not be negative"))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// UsesDevSigningKey reports whether tokens are signed with the development key.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.SigningKey == DevSigningKey
}

// TelemetryFor returns the telemetry settings for one binary.
func (c Config) TelemetryFor(service, version string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    c.Env,
		OTLPEndpoint:   c.Telemetry.OTLPEndpoint,
		Enabled:        c.Telemetry.Enabled,
	}
}

// NewLogger returns the structured logger every binary writes with.
func NewLogger(w io.Writer, service, version string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
