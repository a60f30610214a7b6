package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/config"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
)

var envKeys = []string{
	"APP_ENV", "REQUIRE_TLS", "APP_PORT", "LOG_LEVEL",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"DATABASE_URL", "DB_HOST",
	"MONITOR_TARGETS_FILE", "MONITOR_THRESHOLDS_FILE",
	"OPENWEATHERMAP_API_KEY", "CONDITIONS_FEED_URL",
	"PUBSUB_PROJECT_ID", "PUBSUB_CHANGES_TOPIC", "PUBSUB_JOBS_SUBSCRIPTION",
	"AMQP_URL", "AMQP_EXCHANGE",
	"WORKER_SWEEP_INTERVAL", "WORKER_CONCURRENCY", "RANKING_SCALING",
}

// clearEnv unsets every variable the loader reads. godotenv treats a
// variable set to "" as present, so blanking is not enough. t.Setenv
// registers the restore.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "commute-api", cfg.Auth.Audience)
	assert.True(t, cfg.UsesDevSigningKey())
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.RequireTLS)
	assert.Equal(t, ranking.ScalingAnchored, cfg.Ranking.Scaling)
	assert.Equal(t, 5*time.Minute, cfg.Worker.SweepInterval)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"APP_PORT=7070\n"+
			"LOG_LEVEL=debug\n"+
			"CONDITIONS_FEED_URL=http://feed.local/v1\n"+
			"RANKING_SCALING=batch\n",
	), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port, "the environment wins over the file")
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "http://feed.local/v1", cfg.Sources.FeedURL)
	assert.Equal(t, ranking.ScalingBatch, cfg.Ranking.Scaling)
}

func TestFromEnv_ParseErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LOG_LEVEL", "loud"},
		{"WORKER_SWEEP_INTERVAL", "often"},
		{"WORKER_CONCURRENCY", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.FromEnv()
			require.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "production without signing key",
			mutate: func(c *config.Config) { c.Env = config.EnvProduction },
			want:   "JWT_SIGNING_KEY",
		},
		{
			name:   "non-numeric port",
			mutate: func(c *config.Config) { c.Port = "http" },
			want:   "APP_PORT",
		},
		{
			name:   "unknown scaling",
			mutate: func(c *config.Config) { c.Ranking.Scaling = "zscore" },
			want:   "RANKING_SCALING",
		},
		{
			name:   "topic without project",
			mutate: func(c *config.Config) { c.Notify.PubSubTopic = "changes" },
			want:   "PUBSUB_PROJECT_ID",
		},
		{
			name:   "subscription without project",
			mutate: func(c *config.Config) { c.Worker.Subscription = "jobs" },
			want:   "PUBSUB_PROJECT_ID",
		},
		{
			name:   "zero concurrency",
			mutate: func(c *config.Config) { c.Worker.Concurrency = 0 },
			want:   "WORKER_CONCURRENCY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := config.FromEnv()
			require.NoError(t, err)

			tt.mutate(&cfg)
			err = cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ProductionKeepsProvidedKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", config.EnvProduction)
	t.Setenv("JWT_SIGNING_KEY", "prod-secret")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "prod-secret", cfg.Auth.SigningKey)
	assert.False(t, cfg.UsesDevSigningKey())
}

func TestTelemetryFor(t *testing.T) {
	clearEnv(t)
	t.Setenv("OTEL_ENABLED", "true")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	tc := cfg.TelemetryFor("commute-worker", "1.2.3")
	assert.Equal(t, "commute-worker", tc.ServiceName)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, config.EnvDevelopment, tc.Environment)
	assert.Equal(t, "localhost:4317", tc.OTLPEndpoint)
	assert.True(t, tc.Enabled)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := config.NewLogger(&buf, "commute-api", "dev", zerolog.WarnLevel)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "commute-api", entry["service"])
	assert.Equal(t, "dev", entry["version"])
	assert.Contains(t, entry, "time")
}
