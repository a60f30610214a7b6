package monitor_test

import (
	"bytes"
	"context"
	"errors"
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
)

var t0 = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

// stubSource serves traffic delay values set per target. Every fetch gets a
// strictly increasing timestamp.
type stubSource struct {
	mu     sync.Mutex
	delay  map[string]float64
	failOn map[string]bool
	clock  atomic.Int64
	calls  atomic.Int64

	inflight   sync.Map // target ID -> *atomic.Int32
	overlapped atomic.Bool
	latency    time.Duration
}

func newStubSource() *stubSource {
	return &stubSource{delay: map[string]float64{}, failOn: map[string]bool{}}
}

func (s *stubSource) set(targetID string, delay float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[targetID] = delay
}

func (s *stubSource) fail(targetID string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[targetID] = fail
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(_ context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
	s.calls.Add(1)

	counter, _ := s.inflight.LoadOrStore(target.ID, &atomic.Int32{})
	n := counter.(*atomic.Int32).Add(1)
	defer counter.(*atomic.Int32).Add(-1)
	if n > 1 {
		s.overlapped.Store(true)
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	s.mu.Lock()
	delay, fail := s.delay[target.ID], s.failOn[target.ID]
	s.mu.Unlock()

	if fail {
		return conditions.Snapshot{}, &source.AcquisitionError{
			Source: "stub", TargetID: target.ID, Condition: ct, Err: errors.New("feed offline"),
		}
	}

	snap := conditions.Snapshot{
		TargetID:  target.ID,
		Type:      ct,
		Timestamp: t0.Add(time.Duration(s.clock.Add(1)) * time.Second),
	}
	switch ct {
	case conditions.TypeTraffic, conditions.TypeTransit:
		snap.Values = map[string]float64{"delay_minutes": delay}
	case conditions.TypeWeather:
		snap.Values = map[string]float64{"visibility_km": 10}
	case conditions.TypeParking:
		snap.Values = map[string]float64{"average_cost_per_hour": 2}
	}
	return snap, nil
}

func newTarget(id string, types ...conditions.Type) conditions.Target {
	if len(types) == 0 {
		types = []conditions.Type{conditions.TypeTraffic}
	}
	return conditions.Target{
		ID:          id,
		Origin:      commute.Point{Lat: 52.37, Lon: 4.89},
		Destination: commute.Point{Lat: 52.09, Lon: 5.12},
		Types:       types,
	}
}

func newScheduler(t *testing.T, src source.Source, mutate func(*monitor.Config)) *monitor.Scheduler {
	t.Helper()
	cfg := monitor.Config{Source: src, Logger: zerolog.Nop()}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := monitor.NewScheduler(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

// collector records every notification it receives.
type collector struct {
	mu      sync.Mutex
	records []conditions.ChangeRecord
}

func (c *collector) callback(records []conditions.ChangeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func TestNewScheduler_RequiresSource(t *testing.T) {
	_, err := monitor.NewScheduler(monitor.Config{})
	assert.ErrorIs(t, err, monitor.ErrNoSource)
}

func TestScheduler_CheckNowBaselinesThenNotifies(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, nil)
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	c := &collector{}
	unsubscribe := s.OnChange(c.callback)

	src.set("commute", 5)
	records, err := s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)
	assert.Empty(t, records, "first snapshot only baselines")

	src.set("commute", 7)
	records, err = s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)
	assert.Empty(t, records, "noise below the floor")

	src.set("commute", 40)
	records, err = s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, conditions.SignificanceCritical, records[0].Significance)
	assert.True(t, records[0].RouteAffecting)

	// Unsubscribing drains the queue, so the callback has run.
	unsubscribe()
	assert.Equal(t, 1, c.count())

	history := s.History(monitor.HistoryFilter{TargetID: "commute"})
	require.Len(t, history, 1)
	assert.Equal(t, records[0].ID, history[0].ID)
}

func TestScheduler_AcquisitionFailureFallsBackToStale(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, nil)
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	src.fail("commute", true)
	_, err := s.CheckNow(context.Background(), "commute")
	require.ErrorIs(t, err, source.ErrAcquisition, "no previous snapshot to fall back to")

	src.fail("commute", false)
	src.set("commute", 5)
	_, err = s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)

	src.fail("commute", true)
	records, err := s.CheckNow(context.Background(), "commute")
	require.NoError(t, err, "stale fallback is not an error")
	assert.Empty(t, records)

	status := s.Status()
	require.Len(t, status, 1)
	poll := status[0].Polls[conditions.TypeTraffic]
	assert.Equal(t, 3, poll.Polls)
	assert.Equal(t, 2, poll.Failures)
	assert.True(t, poll.ServingStale)
	assert.Contains(t, poll.LastError, "feed offline")

	require.Len(t, status[0].Detector, 1)
	assert.True(t, status[0].Detector[0].LastStale)
}

func TestScheduler_OneTargetFailingDoesNotHaltOthers(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, func(cfg *monitor.Config) {
		cfg.Intervals = map[conditions.Type]time.Duration{conditions.TypeTraffic: 5 * time.Millisecond}
	})

	src.fail("broken", true)
	src.set("healthy", 0)
	require.NoError(t, s.StartMonitoring(newTarget("broken")))
	require.NoError(t, s.StartMonitoring(newTarget("healthy")))

	c := &collector{}
	s.OnChange(c.callback)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		return s.Detector().State("healthy", conditions.TypeTraffic) != conditions.StateUninitialized
	}, 2*time.Second, 5*time.Millisecond)

	src.set("healthy", 45)
	require.Eventually(t, func() bool { return c.count() >= 1 }, 2*time.Second, 5*time.Millisecond)

	c.mu.Lock()
	assert.Equal(t, "healthy", c.records[0].TargetID)
	c.mu.Unlock()
	assert.Equal(t, conditions.StateUninitialized, s.Detector().State("broken", conditions.TypeTraffic))
}

func TestScheduler_EvaluationsPerTargetAreSequential(t *testing.T) {
	src := newStubSource()
	src.latency = 2 * time.Millisecond
	s := newScheduler(t, src, func(cfg *monitor.Config) {
		cfg.Intervals = map[conditions.Type]time.Duration{
			conditions.TypeTraffic: time.Millisecond,
			conditions.TypeTransit: time.Millisecond,
			conditions.TypeWeather: time.Millisecond,
			conditions.TypeParking: time.Millisecond,
		}
	})

	require.NoError(t, s.StartMonitoring(newTarget("a", conditions.Types...)))
	require.NoError(t, s.StartMonitoring(newTarget("b", conditions.Types...)))
	require.NoError(t, s.Start(context.Background()))

	for i := 0; i < 5; i++ {
		_, _ = s.CheckNow(context.Background(), "a")
	}
	require.Eventually(t, func() bool { return src.calls.Load() > 60 }, 5*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.False(t, src.overlapped.Load(), "two evaluations ran concurrently for one target")
}

func TestScheduler_SlowSubscriberDoesNotBlockPolling(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, func(cfg *monitor.Config) {
		cfg.NotifyBuffer = 1
	})
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	release := make(chan struct{})
	s.OnChange(func([]conditions.ChangeRecord) { <-release })
	fast := &collector{}
	unsubscribeFast := s.OnChange(fast.callback)

	start := time.Now()
	expected := 0
	for _, delay := range []float64{0, 40, 0, 40, 0} {
		src.set("commute", delay)
		records, err := s.CheckNow(context.Background(), "commute")
		require.NoError(t, err)
		expected += len(records)
		require.Eventually(t, func() bool { return fast.count() == expected }, time.Second, time.Millisecond)
	}
	assert.Less(t, time.Since(start), 3*time.Second, "polling blocked behind a slow subscriber")

	close(release)
	unsubscribeFast()
	assert.Equal(t, 4, fast.count())
}

func TestScheduler_StopDeliversQueuedNotifications(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, nil)
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	var delivered atomic.Int32
	s.OnChange(func(records []conditions.ChangeRecord) {
		time.Sleep(10 * time.Millisecond)
		delivered.Add(int32(len(records)))
	})

	for _, delay := range []float64{0, 40, 0, 40} {
		src.set("commute", delay)
		_, err := s.CheckNow(context.Background(), "commute")
		require.NoError(t, err)
	}

	s.Stop()
	assert.Equal(t, int32(3), delivered.Load())
}

func TestScheduler_Lifecycle(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, nil)

	// Stop before Start is safe and idempotent.
	s.Stop()
	s.Stop()

	assert.ErrorIs(t, s.Start(context.Background()), monitor.ErrStopped)
	assert.ErrorIs(t, s.StartMonitoring(newTarget("late")), monitor.ErrStopped)
	_, err := s.CheckNow(context.Background(), "late")
	assert.ErrorIs(t, err, monitor.ErrStopped)
	assert.False(t, s.Running())

	unsubscribe := s.OnChange(func([]conditions.ChangeRecord) {})
	unsubscribe()
}

func TestScheduler_StartMonitoringValidation(t *testing.T) {
	s := newScheduler(t, newStubSource(), nil)

	require.NoError(t, s.StartMonitoring(newTarget("commute")))
	assert.ErrorIs(t, s.StartMonitoring(newTarget("commute")), monitor.ErrTargetExists)

	bad := newTarget("dup", conditions.TypeTraffic, conditions.TypeTraffic)
	assert.ErrorIs(t, s.StartMonitoring(bad), commute.ErrValidation)

	assert.Equal(t, []string{"commute"}, s.Targets())
}

func TestScheduler_StopMonitoringReleasesBaseline(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, func(cfg *monitor.Config) {
		cfg.Intervals = map[conditions.Type]time.Duration{conditions.TypeTraffic: 5 * time.Millisecond}
	})
	require.NoError(t, s.StartMonitoring(newTarget("commute")))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		return s.Detector().State("commute", conditions.TypeTraffic) != conditions.StateUninitialized
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.StopMonitoring("commute"))
	assert.Equal(t, conditions.StateUninitialized, s.Detector().State("commute", conditions.TypeTraffic))
	assert.Empty(t, s.Targets())

	calls := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load(), "polling continued after release")

	assert.ErrorIs(t, s.StopMonitoring("commute"), monitor.ErrUnknownTarget)
	_, err := s.CheckNow(context.Background(), "commute")
	assert.ErrorIs(t, err, monitor.ErrUnknownTarget)
}

func TestScheduler_HistoryIsBoundedAndFiltered(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, func(cfg *monitor.Config) {
		cfg.HistoryLimit = 4
	})
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	var ids []string
	for _, delay := range []float64{0, 40, 0, 40, 0, 40} {
		src.set("commute", delay)
		records, err := s.CheckNow(context.Background(), "commute")
		require.NoError(t, err)
		for _, r := range records {
			ids = append(ids, r.ID)
		}
	}
	require.Len(t, ids, 5)

	history := s.History(monitor.HistoryFilter{})
	require.Len(t, history, 2, "exceeding the limit keeps the newest half")
	assert.Equal(t, ids[4], history[0].ID)
	assert.Equal(t, ids[3], history[1].ID)

	assert.Len(t, s.History(monitor.HistoryFilter{Limit: 1}), 1)
	assert.Empty(t, s.History(monitor.HistoryFilter{TargetID: "other"}))
	assert.Empty(t, s.History(monitor.HistoryFilter{Type: conditions.TypeWeather}))
	assert.Len(t, s.History(monitor.HistoryFilter{MinSignificance: conditions.SignificanceCritical}), 2)
}

func TestScheduler_SubscriberPanicIsContained(t *testing.T) {
	src := newStubSource()
	s := newScheduler(t, src, nil)
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	unsubscribePanic := s.OnChange(func([]conditions.ChangeRecord) { panic("boom") })
	c := &collector{}
	unsubscribe := s.OnChange(c.callback)

	for _, delay := range []float64{0, 40, 0} {
		src.set("commute", delay)
		_, err := s.CheckNow(context.Background(), "commute")
		require.NoError(t, err)
	}

	unsubscribePanic()
	unsubscribe()
	assert.Equal(t, 2, c.count())
}

func TestScheduler_StopCancelsCheckNowInFlight(t *testing.T) {
	var calls atomic.Int32
	fetching := make(chan struct{})
	src := source.Func{Fn: func(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
		n := calls.Add(1)
		snap := conditions.Snapshot{
			TargetID:  target.ID,
			Type:      ct,
			Timestamp: t0.Add(time.Duration(n) * time.Minute),
			Values:    map[string]float64{"delay_minutes": 0},
		}
		if n > 1 {
			// The feed answers only once the check is cancelled, with a
			// delay that would otherwise be a critical change.
			close(fetching)
			<-ctx.Done()
			snap.Values["delay_minutes"] = 45
		}
		return snap, nil
	}}

	var logs bytes.Buffer
	s, err := monitor.NewScheduler(monitor.Config{Source: src, Logger: zerolog.New(&logs)})
	require.NoError(t, err)
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	c := &collector{}
	s.OnChange(c.callback)

	_, err = s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := s.CheckNow(context.Background(), "commute")
		result <- err
	}()
	<-fetching

	s.Stop()

	// Stop waits for the check, so its outcome is settled by now.
	assert.Contains(t, logs.String(), "evaluation cancelled, snapshot discarded")
	assert.Zero(t, c.count())
	assert.Empty(t, s.History(monitor.HistoryFilter{}))
	baseline, ok := s.Detector().Baseline("commute", conditions.TypeTraffic)
	require.True(t, ok)
	assert.Equal(t, 0.0, baseline.Values["delay_minutes"])

	select {
	case err := <-result:
		assert.ErrorIs(t, err, monitor.ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("CheckNow did not return after Stop")
	}

	_, err = s.CheckNow(context.Background(), "commute")
	assert.ErrorIs(t, err, monitor.ErrStopped)
}

func TestScheduler_StaleSourceDataReducesConfidence(t *testing.T) {
	var calls atomic.Int32
	src := source.Func{Fn: func(_ context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
		n := calls.Add(1)
		snap := conditions.Snapshot{
			TargetID:  target.ID,
			Type:      ct,
			Timestamp: t0.Add(time.Duration(n) * time.Minute),
			Values:    map[string]float64{"delay_minutes": 0},
		}
		if n > 1 {
			snap.Values["delay_minutes"] = 45
			snap.Stale = true
		}
		return snap, nil
	}}
	s := newScheduler(t, src, nil)
	require.NoError(t, s.StartMonitoring(newTarget("commute")))

	_, err := s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)

	records, err := s.CheckNow(context.Background(), "commute")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].ReducedConfidence)
}
