package monitor

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// TriggerConfig holds configuration for an update trigger.
type TriggerConfig struct {
	// OnRegenerate is called when at least one record is route-affecting,
	// so candidate routes must be rebuilt before re-scoring.
	OnRegenerate Callback

	// OnRescore is called when every record is recommendation-only, so the
	// existing routes only need re-scoring.
	OnRescore Callback

	// MinSignificance ignores records below this level.
	// Default: no filtering beyond the detector's floor
	MinSignificance conditions.Significance

	// Logger for trigger decisions.
	Logger zerolog.Logger
}

// Trigger turns change notifications into recompute requests.
type Trigger struct {
	cfg          TriggerConfig
	regenerated  atomic.Int64
	rescored     atomic.Int64
	ignoredCount atomic.Int64
}

// NewTrigger creates an update trigger.
func NewTrigger(cfg TriggerConfig) *Trigger {
	return &Trigger{cfg: cfg}
}

// Attach subscribes the trigger to a scheduler and returns the unsubscribe
// function.
func (t *Trigger) Attach(s *Scheduler) func() {
	return s.OnChange(t.Handle)
}

// Handle routes one notification to the regenerate or re-score callback.
func (t *Trigger) Handle(records []conditions.ChangeRecord) {
	relevant := make([]conditions.ChangeRecord, 0, len(records))
	routeAffecting := false
	for _, r := range records {
		if r.Significance < t.cfg.MinSignificance {
			continue
		}
		relevant = append(relevant, r)
		routeAffecting = routeAffecting || r.RouteAffecting
	}
	if len(relevant) == 0 {
		t.ignoredCount.Add(1)
		return
	}

	if routeAffecting {
		t.regenerated.Add(1)
		t.cfg.Logger.Info().
			Str("target_id", relevant[0].TargetID).
			Int("records", len(relevant)).
			Msg("route-affecting change, regenerating routes")
		if t.cfg.OnRegenerate != nil {
			t.cfg.OnRegenerate(relevant)
		}
		return
	}

	t.rescored.Add(1)
	t.cfg.Logger.Info().
		Str("target_id", relevant[0].TargetID).
		Int("records", len(relevant)).
		Msg("recommendation-only change, re-scoring routes")
	if t.cfg.OnRescore != nil {
		t.cfg.OnRescore(relevant)
	}
}

// TriggerStats counts trigger decisions.
type TriggerStats struct {
	Regenerated int64 `json:"regenerated"`
	Rescored    int64 `json:"rescored"`
	Ignored     int64 `json:"ignored"`
}

// Stats returns the trigger's decision counts.
func (t *Trigger) Stats() TriggerStats {
	return TriggerStats{
		Regenerated: t.regenerated.Load(),
		Rescored:    t.rescored.Load(),
		Ignored:     t.ignoredCount.Load(),
	}
}
