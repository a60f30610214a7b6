package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// Checker evaluates monitored targets on demand. *monitor.Scheduler
// implements it.
type Checker interface {
	Targets() []string
	CheckNow(ctx context.Context, targetID string) ([]conditions.ChangeRecord, error)
}

// SweepJob checks every monitored target once.
type SweepJob struct {
	config  SweepConfig
	checker Checker
	logger  zerolog.Logger

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalSweeps      int64
	SuccessfulChecks int64
	FailedChecks     int64
	ChangesDetected  int64

	// Timings
	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config  SweepConfig
	Checker Checker
	Logger  zerolog.Logger
}

// NewSweepJob creates a new sweep job.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	return &SweepJob{
		config:  cfg.Config.withDefaults(),
		checker: cfg.Checker,
		logger:  cfg.Logger,
		metrics: &SweepMetrics{},
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	Changes      []conditions.ChangeRecord
	Errors       []SweepError
}

// SweepError records a target whose check failed.
type SweepError struct {
	TargetID string
	Error    string
}

// Healthy reports whether the failure ratio stayed within the configured limit.
func (r *SweepResult) Healthy(maxFailureRatio float64) bool {
	if r.TotalTargets == 0 {
		return true
	}
	return float64(r.Failed)/float64(r.TotalTargets) <= maxFailureRatio
}

// Run checks every target currently monitored by the checker.
func (j *SweepJob) Run(ctx context.Context) *SweepResult {
	return j.run(ctx, j.checker.Targets())
}

// RunTargets checks only the named targets.
func (j *SweepJob) RunTargets(ctx context.Context, targetIDs []string) *SweepResult {
	return j.run(ctx, targetIDs)
}

func (j *SweepJob) run(ctx context.Context, targetIDs []string) *SweepResult {
	startTime := time.Now()
	result := &SweepResult{
		StartTime:    startTime,
		TotalTargets: len(targetIDs),
	}

	j.logger.Info().
		Int("total_targets", result.TotalTargets).
		Int("concurrency", j.config.Concurrency).
		Msg("starting condition sweep")

	idsChan := make(chan string, len(targetIDs))
	resultsChan := make(chan targetResult, len(targetIDs))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.sweepWorker(ctx, idsChan, resultsChan)
		}()
	}

	for _, id := range targetIDs {
		idsChan <- id
	}
	close(idsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, SweepError{TargetID: tr.targetID, Error: tr.err.Error()})
			continue
		}
		result.Successful++
		result.Changes = append(result.Changes, tr.changes...)
	}
	// Targets skipped after cancellation count as failed.
	if skipped := result.TotalTargets - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("changes", len(result.Changes)).
		Msg("condition sweep completed")

	return result
}

// RunEvery runs a full sweep every interval until ctx is done.
func (j *SweepJob) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := j.Run(ctx)
			if !result.Healthy(j.config.MaxFailureRatio) {
				j.logger.Warn().
					Int("failed", result.Failed).
					Int("total_targets", result.TotalTargets).
					Msg("sweep exceeded the failure ratio")
			}
		}
	}
}

type targetResult struct {
	targetID string
	changes  []conditions.ChangeRecord
	err      error
}

func (j *SweepJob) sweepWorker(ctx context.Context, ids <-chan string, results chan<- targetResult) {
	for id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.checkTarget(ctx, id)
		}
	}
}

func (j *SweepJob) checkTarget(ctx context.Context, targetID string) targetResult {
	checkCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	changes, err := j.checker.CheckNow(checkCtx, targetID)
	if err != nil {
		j.logger.Warn().Err(err).Str("target_id", targetID).Msg("target check failed")
	}
	return targetResult{targetID: targetID, changes: changes, err: err}
}

func (j *SweepJob) updateMetrics(result *SweepResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.SuccessfulChecks += int64(result.Successful)
	j.metrics.FailedChecks += int64(result.Failed)
	j.metrics.ChangesDetected += int64(len(result.Changes))
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *SweepJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		SuccessfulChecks:  j.metrics.SuccessfulChecks,
		FailedChecks:      j.metrics.FailedChecks,
		ChangesDetected:   j.metrics.ChangesDetected,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_sweeps":        m.TotalSweeps,
		"successful_checks":   m.SuccessfulChecks,
		"failed_checks":       m.FailedChecks,
		"changes_detected":    m.ChangesDetected,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
