// Package monitor polls condition sources for registered commute targets,
// feeds the snapshots to the change detector and dispatches change records
// to subscribers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions/source"
)

// Scheduler errors.
var (
	ErrNoSource      = errors.New("scheduler requires a condition source")
	ErrStopped       = errors.New("scheduler is stopped")
	ErrUnknownTarget = errors.New("target is not monitored")
	ErrTargetExists  = errors.New("target is already monitored")
)

// Callback receives change records. It runs on the subscriber's own
// goroutine and may block without affecting polling.
type Callback func(records []conditions.ChangeRecord)

// Config holds configuration for the monitoring scheduler.
type Config struct {
	// Source supplies condition snapshots (required).
	Source source.Source

	// Detector evaluates snapshots against baselines.
	// Default: a detector with DefaultThresholds()
	Detector *conditions.Detector

	// Intervals is the poll cadence per condition type. Missing types use
	// DefaultIntervals.
	Intervals map[conditions.Type]time.Duration

	// FetchTimeout bounds a single acquisition.
	// Default: 15 seconds
	FetchTimeout time.Duration

	// NotifyBuffer is the queue length per subscriber. A notification for a
	// subscriber whose queue is full is dropped and logged.
	// Default: 64
	NotifyBuffer int

	// HistoryLimit bounds retained change records. When exceeded, the
	// oldest half is discarded.
	// Default: 1000
	HistoryLimit int

	// Logger for scheduler operations.
	Logger zerolog.Logger

	// Meter records poll and notification metrics. Default: the global meter.
	Meter metric.Meter
}

// DefaultIntervals returns the poll cadence per condition type.
func DefaultIntervals() map[conditions.Type]time.Duration {
	return map[conditions.Type]time.Duration{
		conditions.TypeTraffic: 3 * time.Minute,
		conditions.TypeTransit: 5 * time.Minute,
		conditions.TypeWeather: 15 * time.Minute,
		conditions.TypeParking: 10 * time.Minute,
	}
}

// Scheduler drives periodic acquisition for every monitored target. Each
// (target, condition type) pair polls on its own goroutine; evaluations for
// one target are serialised so no two run against the same baseline.
type Scheduler struct {
	source       source.Source
	detector     *conditions.Detector
	intervals    map[conditions.Type]time.Duration
	fetchTimeout time.Duration
	notifyBuffer int
	historyLimit int
	logger       zerolog.Logger
	metrics      *schedulerMetrics

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	// life is cancelled by Stop. On-demand checks run under it even when
	// the scheduler was never started.
	life    context.Context
	endLife context.CancelFunc
	started bool
	stopped bool
	watches map[string]*watch
	pollers sync.WaitGroup

	subMu   sync.RWMutex
	subs    map[uint64]*subscriber
	nextSub uint64

	histMu  sync.RWMutex
	history []conditions.ChangeRecord
}

type watch struct {
	target conditions.Target
	cancel context.CancelFunc
	done   sync.WaitGroup

	// mu serialises evaluations for this target.
	mu    sync.Mutex
	polls map[conditions.Type]*PollStatus
}

// PollStatus describes the most recent polls of one condition type.
type PollStatus struct {
	Interval      time.Duration `json:"interval"`
	Polls         int           `json:"polls"`
	Failures      int           `json:"failures"`
	LastPollAt    time.Time     `json:"lastPollAt"`
	LastSuccessAt time.Time     `json:"lastSuccessAt"`
	LastError     string        `json:"lastError,omitempty"`
	ServingStale  bool          `json:"servingStale"`
}

// TargetStatus is a read-only view of one monitored target.
type TargetStatus struct {
	Target   conditions.Target              `json:"target"`
	Polls    map[conditions.Type]PollStatus `json:"polls"`
	Detector []conditions.EntryStatus       `json:"detector"`
}

// NewScheduler creates a scheduler. It does not poll until Start is called.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Source == nil {
		return nil, ErrNoSource
	}

	detector := cfg.Detector
	if detector == nil {
		detector = conditions.NewDetector(conditions.DetectorConfig{Logger: cfg.Logger})
	}

	intervals := DefaultIntervals()
	for ct, d := range cfg.Intervals {
		if d > 0 {
			intervals[ct] = d
		}
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 15 * time.Second
	}

	notifyBuffer := cfg.NotifyBuffer
	if notifyBuffer <= 0 {
		notifyBuffer = 64
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 1000
	}

	metrics, err := newSchedulerMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler metrics: %w", err)
	}

	life, endLife := context.WithCancel(context.Background())

	return &Scheduler{
		life:         life,
		endLife:      endLife,
		source:       cfg.Source,
		detector:     detector,
		intervals:    intervals,
		fetchTimeout: fetchTimeout,
		notifyBuffer: notifyBuffer,
		historyLimit: historyLimit,
		logger:       cfg.Logger,
		metrics:      metrics,
		watches:      make(map[string]*watch),
		subs:         make(map[uint64]*subscriber),
	}, nil
}

// Detector returns the scheduler's change detector.
func (s *Scheduler) Detector() *conditions.Detector {
	return s.detector
}

// Start begins polling every registered target. Calling Start on a running
// scheduler is a no-op; a stopped scheduler cannot be restarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.started = true
	for _, w := range s.watches {
		s.launch(w)
	}

	s.logger.Info().
		Int("targets", len(s.watches)).
		Msg("monitoring scheduler started")
	return nil
}

// Stop cancels all polls and on-demand checks, waits for in-flight
// evaluations and then delivers every queued notification before returning.
// An evaluation whose acquisition completes after cancellation is discarded
// with a log line and never touches the baseline. It is safe to call at any
// time and more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.endLife()
	s.mu.Unlock()

	s.pollers.Wait()

	s.subMu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for id, sub := range s.subs {
		subs = append(subs, sub)
		delete(s.subs, id)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.close()
	}

	s.logger.Info().Msg("monitoring scheduler stopped")
}

// StartMonitoring registers a target. If the scheduler is running, polling
// begins immediately.
func (s *Scheduler) StartMonitoring(target conditions.Target) error {
	if err := target.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.watches[target.ID]; ok {
		return fmt.Errorf("%w: %s", ErrTargetExists, target.ID)
	}

	w := &watch{
		target: target,
		polls:  make(map[conditions.Type]*PollStatus, len(target.Types)),
	}
	for _, ct := range target.Types {
		w.polls[ct] = &PollStatus{Interval: s.intervals[ct]}
	}
	s.watches[target.ID] = w

	if s.started {
		s.launch(w)
	}

	s.logger.Info().
		Str("target_id", target.ID).
		Int("condition_types", len(target.Types)).
		Msg("monitoring target registered")
	return nil
}

// StopMonitoring cancels a target's polls, waits for its in-flight
// evaluation and drops its baselines.
func (s *Scheduler) StopMonitoring(targetID string) error {
	s.mu.Lock()
	w, ok := s.watches[targetID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	delete(s.watches, targetID)
	if w.cancel != nil {
		w.cancel()
	}
	s.mu.Unlock()

	w.done.Wait()
	s.detector.Forget(targetID)

	s.logger.Info().
		Str("target_id", targetID).
		Msg("monitoring target released")
	return nil
}

// launch starts one poller per condition type. Callers hold s.mu.
func (s *Scheduler) launch(w *watch) {
	ctx, cancel := context.WithCancel(s.runCtx)
	w.cancel = cancel
	for _, ct := range w.target.Types {
		w.done.Add(1)
		s.pollers.Add(1)
		go s.poll(ctx, w, ct)
	}
}

func (s *Scheduler) poll(ctx context.Context, w *watch, ct conditions.Type) {
	defer s.pollers.Done()
	defer w.done.Done()

	// First poll runs immediately to establish the baseline.
	s.evaluate(ctx, w, ct) //nolint:errcheck // logged inside

	ticker := time.NewTicker(s.intervals[ct])
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evaluate(ctx, w, ct) //nolint:errcheck // logged inside
		}
	}
}

// evaluate acquires one snapshot and feeds it to the detector. When
// acquisition fails, the last known snapshot is replayed marked stale. The
// replay repeats what the detector already classified, so it only annotates
// status and never yields a record; reduced-confidence records come from
// sources that return their own stale-flagged data with new values. The
// returned error is non-nil only when nothing could be evaluated.
func (s *Scheduler) evaluate(ctx context.Context, w *watch, ct conditions.Type) (*conditions.ChangeRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.monitoring(w) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, w.target.ID)
	}

	start := time.Now()
	status := w.polls[ct]
	status.Polls++
	status.LastPollAt = start

	log := s.logger.With().
		Str("target_id", w.target.ID).
		Str("condition", string(ct)).
		Logger()

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	snap, err := s.source.Fetch(fetchCtx, w.target, ct)
	cancel()

	if ctxErr := ctx.Err(); ctxErr != nil {
		stopped := s.isStopped()
		if err == nil {
			if stopped {
				s.metrics.drop(ctx)
			}
			log.Info().
				Bool("scheduler_stopped", stopped).
				Msg("evaluation cancelled, snapshot discarded")
		}
		if stopped {
			return nil, ErrStopped
		}
		return nil, ctxErr
	}

	if err != nil {
		status.Failures++
		status.LastError = err.Error()
		s.metrics.failure(ctx, ct)

		last, ok := s.detector.Last(w.target.ID, ct)
		if !ok {
			status.ServingStale = false
			log.Warn().Err(err).Msg("acquisition failed and no previous snapshot exists")
			return nil, err
		}
		log.Warn().Err(err).
			Time("last_observed_at", last.Timestamp).
			Msg("acquisition failed, evaluating last known snapshot as stale")
		last.Stale = true
		snap = last
		status.ServingStale = true
	} else {
		status.LastSuccessAt = start
		status.LastError = ""
		status.ServingStale = false
	}

	// Sources address snapshots by target; enforce it so a misbehaving
	// source cannot touch another target's baseline.
	snap.TargetID = w.target.ID
	snap.Type = ct

	rec, err := s.detector.Observe(snap)
	s.metrics.poll(ctx, ct, time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("snapshot rejected by change detector")
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	s.metrics.change(ctx, *rec)
	s.publish(ctx, []conditions.ChangeRecord{*rec})
	return rec, nil
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scheduler) monitoring(w *watch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watches[w.target.ID] == w
}

// CheckNow polls every condition type of a target immediately and returns
// the change records it produced. Records are also dispatched to
// subscribers. Acquisition failures that fall back to stale data are not
// errors. Stop cancels a check in progress and waits for it.
func (s *Scheduler) CheckNow(ctx context.Context, targetID string) ([]conditions.ChangeRecord, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	w, ok := s.watches[targetID]
	if ok {
		s.pollers.Add(1)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	defer s.pollers.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(s.life, cancel)()

	var (
		mu      sync.Mutex
		records []conditions.ChangeRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, ct := range w.target.Types {
		g.Go(func() error {
			rec, err := s.evaluate(gctx, w, ct)
			if err != nil {
				return err
			}
			if rec != nil {
				mu.Lock()
				records = append(records, *rec)
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()

	sort.Slice(records, func(i, j int) bool {
		return records[i].Type < records[j].Type
	})
	return records, err
}

// Status returns the status of every monitored target, ordered by ID.
func (s *Scheduler) Status() []TargetStatus {
	s.mu.Lock()
	watches := make([]*watch, 0, len(s.watches))
	for _, w := range s.watches {
		watches = append(watches, w)
	}
	s.mu.Unlock()

	sort.Slice(watches, func(i, j int) bool {
		return watches[i].target.ID < watches[j].target.ID
	})

	out := make([]TargetStatus, 0, len(watches))
	for _, w := range watches {
		w.mu.Lock()
		polls := make(map[conditions.Type]PollStatus, len(w.polls))
		for ct, p := range w.polls {
			polls[ct] = *p
		}
		w.mu.Unlock()

		out = append(out, TargetStatus{
			Target:   w.target,
			Polls:    polls,
			Detector: s.detector.Status(w.target.ID),
		})
	}
	return out
}

// Targets returns the IDs of every monitored target in sorted order.
func (s *Scheduler) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.watches))
	for id := range s.watches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}
