package worker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions/source"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/worker"
)

type fakeChecker struct {
	mu      sync.Mutex
	targets []string
	failing map[string]bool
	checked []string
}

func (f *fakeChecker) Targets() []string { return f.targets }

func (f *fakeChecker) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checked)
}

func (f *fakeChecker) CheckNow(_ context.Context, targetID string) ([]conditions.ChangeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, targetID)
	if f.failing[targetID] {
		return nil, errors.New("feed offline")
	}
	return []conditions.ChangeRecord{{ID: "chg_" + targetID, TargetID: targetID}}, nil
}

func newSweep(checker worker.Checker) *worker.SweepJob {
	return worker.NewSweepJob(worker.SweepJobConfig{
		Config:  worker.SweepConfig{Concurrency: 2, Timeout: time.Second},
		Checker: checker,
		Logger:  zerolog.Nop(),
	})
}

func TestDefaultSweepConfig(t *testing.T) {
	cfg := worker.DefaultSweepConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.MaxFailureRatio)
}

func TestDecodeTargets(t *testing.T) {
	doc := `
targets:
  - id: weekend
    priority: 3
    origin: {lat: 52.37, lon: 4.90}
    destination: {lat: 52.09, lon: 5.11}
  - id: home-office
    name: Home to office
    priority: 1
    origin: {lat: 52.3676, lon: 4.9041}
    destination: {lat: 52.0894, lon: 5.1102}
    types: [traffic, transit]
`
	targets, err := worker.DecodeTargets(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "home-office", targets[0].ID, "lower priority value first")
	assert.Equal(t, "Home to office", targets[0].Name)
	assert.Equal(t, []conditions.Type{conditions.TypeTraffic, conditions.TypeTransit}, targets[0].Types)
	assert.Equal(t, commute.Point{Lat: 52.0894, Lon: 5.1102}, targets[0].Destination)

	assert.Equal(t, conditions.Types, targets[1].Types, "no types watches everything")
}

func TestDecodeTargets_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown key",
			doc:  "targets:\n  - id: a\n    colour: red\n",
			want: "colour",
		},
		{
			name: "unknown type",
			doc:  "targets:\n  - id: a\n    types: [tides]\n",
			want: "tides",
		},
		{
			name: "duplicate id",
			doc:  "targets:\n  - id: a\n  - id: a\n",
			want: "duplicate id",
		},
		{
			name: "bad coordinates",
			doc:  "targets:\n  - id: a\n    origin: {lat: 123, lon: 0}\n",
			want: "origin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := worker.DecodeTargets(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeTargets_Empty(t *testing.T) {
	targets, err := worker.DecodeTargets(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestSweepJob_Run(t *testing.T) {
	checker := &fakeChecker{
		targets: []string{"a", "b", "c"},
		failing: map[string]bool{"b": true},
	}
	job := newSweep(checker)

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalTargets)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Changes, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "b", result.Errors[0].TargetID)
	assert.Equal(t, "feed offline", result.Errors[0].Error)
	assert.True(t, result.Healthy(0.5))
	assert.False(t, result.Healthy(0.2))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, checker.checked)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalSweeps)
	assert.Equal(t, int64(2), metrics.SuccessfulChecks)
	assert.Equal(t, int64(1), metrics.FailedChecks)
	assert.Equal(t, int64(2), metrics.ChangesDetected)
	assert.False(t, metrics.LastSweepAt.IsZero())

	snapshot := job.MetricsSnapshot()
	assert.Equal(t, int64(1), snapshot["total_sweeps"])
	assert.Equal(t, int64(2), snapshot["changes_detected"])
}

func TestSweepJob_CancelledContext(t *testing.T) {
	checker := &fakeChecker{targets: []string{"a", "b"}}
	job := newSweep(checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)
	assert.Equal(t, 2, result.TotalTargets)
	assert.Equal(t, 2, result.Successful+result.Failed, "skipped targets count as failed")
}

func TestSweepJob_EmptyRunIsHealthy(t *testing.T) {
	result := newSweep(&fakeChecker{}).Run(context.Background())
	assert.Zero(t, result.TotalTargets)
	assert.True(t, result.Healthy(0.5))
}

func TestSweepJob_RunEvery(t *testing.T) {
	checker := &fakeChecker{targets: []string{"a"}}
	job := newSweep(checker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.RunEvery(ctx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool { return checker.checkCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.GreaterOrEqual(t, job.GetMetrics().TotalSweeps, int64(2))
}

func TestProcessor_Process(t *testing.T) {
	checker := &fakeChecker{
		targets: []string{"a", "b", "c"},
		failing: map[string]bool{"b": true, "c": true},
	}
	var healthChecks atomic.Int32
	p := worker.NewProcessor(worker.ProcessorConfig{
		SweepJob: newSweep(checker),
		HealthCheck: func(context.Context) error {
			healthChecks.Add(1)
			return nil
		},
		Logger: zerolog.Nop(),
	})
	ctx := context.Background()

	assert.NoError(t, p.Process(ctx, []byte(`{"job_type":"check_target","target_id":"a"}`)))
	assert.NoError(t, p.Process(ctx, []byte(`{"job_type":"sweep","targets":["a"]}`)))
	assert.ErrorIs(t, p.Process(ctx, []byte(`{"job_type":"sweep"}`)), worker.ErrSweepFailed)
	assert.ErrorIs(t, p.Process(ctx, []byte(`{"job_type":"check_target","target_id":"b"}`)), worker.ErrSweepFailed)
	assert.ErrorIs(t, p.Process(ctx, []byte(`{"job_type":"check_target"}`)), worker.ErrInvalidJob)
	assert.ErrorIs(t, p.Process(ctx, []byte(`{"job_type":"provider_refresh"}`)), worker.ErrUnknownJob)
	assert.ErrorIs(t, p.Process(ctx, []byte(`not json`)), worker.ErrInvalidJob)

	assert.NoError(t, p.Process(ctx, []byte(`{"job_type":"health_check"}`)))
	assert.Equal(t, int32(1), healthChecks.Load())
}

func TestRegistryHealthCheck_EmptyRegistry(t *testing.T) {
	check := worker.RegistryHealthCheck(resilience.NewRegistry())
	assert.NoError(t, check(context.Background()))
}

func TestRegistryHealthCheck_NamesUnservedConditions(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	reg := resilience.NewRegistry()
	cb := resilience.DefaultCircuitBreakerConfig(source.OpenWeatherMapName)
	cb.ReadyToTrip = resilience.ConsecutiveFailures(0)
	owm := resilience.NewClient(resilience.ClientConfig{
		Name:            source.OpenWeatherMapName,
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		CircuitBreaker:  &cb,
		Registry:        reg,
	})
	reg.Assign(source.OpenWeatherMapName, conditions.TypeWeather)
	resilience.NewClient(resilience.ClientConfig{Name: source.FeedName, Registry: reg})
	reg.Assign(source.FeedName, conditions.TypeTraffic)

	check := worker.RegistryHealthCheck(reg)
	require.NoError(t, check(context.Background()))

	require.Error(t, owm.GetJSON(context.Background(), down.URL, &struct{}{}))

	err := check(context.Background())
	require.ErrorIs(t, err, worker.ErrProviderDown)
	assert.Contains(t, err.Error(), "weather")
	assert.NotContains(t, err.Error(), "traffic")

	// A second provider for the type keeps it available.
	reg.Assign(source.FeedName, conditions.TypeWeather)
	assert.NoError(t, check(context.Background()))
}

func TestSweepJob_WithScheduler(t *testing.T) {
	var delay atomic.Int64
	var clock atomic.Int64
	t0 := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	src := source.Func{SourceName: "test", Fn: func(_ context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
		return conditions.Snapshot{
			TargetID:  target.ID,
			Type:      ct,
			Timestamp: t0.Add(time.Duration(clock.Add(1)) * time.Second),
			Values:    map[string]float64{"delay_minutes": float64(delay.Load())},
		}, nil
	}}
	s, err := monitor.NewScheduler(monitor.Config{Source: src, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.NoError(t, s.StartMonitoring(conditions.Target{
		ID:          "home-office",
		Origin:      commute.Point{Lat: 52.37, Lon: 4.90},
		Destination: commute.Point{Lat: 52.09, Lon: 5.11},
		Types:       []conditions.Type{conditions.TypeTraffic},
	}))

	job := newSweep(s)
	first := job.Run(context.Background())
	assert.Equal(t, 1, first.Successful)
	assert.Empty(t, first.Changes)

	delay.Store(35)
	second := job.Run(context.Background())
	require.Len(t, second.Changes, 1)
	assert.Equal(t, conditions.SignificanceCritical, second.Changes[0].Significance)
}
