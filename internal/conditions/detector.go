package conditions

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// State is the detector's lifecycle for one (target, condition type).
type State string

// Detector states.
const (
	StateUninitialized State = "uninitialized"
	StateBaselined     State = "baselined"
	StateEvaluating    State = "evaluating"
)

// DetectorConfig holds configuration for the change detector.
type DetectorConfig struct {
	// Thresholds is the change-threshold configuration.
	// Default: DefaultThresholds()
	Thresholds *ThresholdSet

	// Logger for detector decisions.
	Logger zerolog.Logger

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// Detector compares incoming snapshots to a per-target baseline and emits a
// ChangeRecord when the difference reaches the notification floor. The
// baseline is replaced only when a record is emitted; smaller differences are
// discarded so noise never moves the baseline.
type Detector struct {
	thresholds ThresholdSet
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	entries map[entryKey]*entry
}

type entryKey struct {
	target string
	typ    Type
}

type entry struct {
	state       State
	baseline    Snapshot
	last        Snapshot
	checkedAt   time.Time
	evaluations int
	notified    int
	discarded   int
}

// EntryStatus is a read-only view of one detector entry.
type EntryStatus struct {
	TargetID       string    `json:"targetId"`
	Type           Type      `json:"type"`
	State          State     `json:"state"`
	BaselineAt     time.Time `json:"baselineAt"`
	LastObservedAt time.Time `json:"lastObservedAt"`
	LastStale      bool      `json:"lastStale"`
	CheckedAt      time.Time `json:"checkedAt"`
	Evaluations    int       `json:"evaluations"`
	Notified       int       `json:"notified"`
	Discarded      int       `json:"discarded"`
}

// NewDetector creates a change detector.
func NewDetector(cfg DetectorConfig) *Detector {
	thresholds := DefaultThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	if thresholds.NotificationFloor == SignificanceNone {
		thresholds.NotificationFloor = SignificanceModerate
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Detector{
		thresholds: thresholds,
		logger:     cfg.Logger,
		now:        now,
		entries:    make(map[entryKey]*entry),
	}
}

// NotificationFloor returns the lowest significance that emits a record.
func (d *Detector) NotificationFloor() Significance {
	return d.thresholds.NotificationFloor
}

// Thresholds returns the detector's threshold configuration.
func (d *Detector) Thresholds() ThresholdSet {
	return d.thresholds
}

// Observe feeds one snapshot to the detector. The first snapshot for a
// (target, type) becomes the baseline and returns nil. Later snapshots
// return a record when the change reaches the notification floor, and nil
// otherwise.
//
// Non-stale snapshots must be strictly newer than the previous one. A stale
// snapshot may repeat the previous timestamp, since it is the last known
// observation replayed after an acquisition failure.
func (d *Detector) Observe(snap Snapshot) (*ChangeRecord, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := entryKey{snap.TargetID, snap.Type}
	e, ok := d.entries[key]
	if !ok {
		if err := d.checkLabels(snap); err != nil {
			return nil, err
		}
		d.entries[key] = &entry{
			state:     StateBaselined,
			baseline:  snap.Clone(),
			last:      snap.Clone(),
			checkedAt: d.now(),
		}
		d.logger.Debug().
			Str("target_id", snap.TargetID).
			Str("condition", string(snap.Type)).
			Time("baseline_at", snap.Timestamp).
			Msg("baseline established")
		return nil, nil
	}

	if err := checkOrder(e.last, snap); err != nil {
		return nil, err
	}

	changes, level, err := d.compare(e.baseline, snap)
	if err != nil {
		return nil, err
	}

	e.state = StateEvaluating
	e.last = snap.Clone()
	e.checkedAt = d.now()
	e.evaluations++

	if level < d.thresholds.NotificationFloor {
		e.discarded++
		d.logger.Debug().
			Str("target_id", snap.TargetID).
			Str("condition", string(snap.Type)).
			Str("significance", level.String()).
			Msg("change below notification floor, baseline retained")
		return nil, nil
	}

	record := &ChangeRecord{
		ID:                "chg_" + uuid.New().String()[:22],
		TargetID:          snap.TargetID,
		Type:              snap.Type,
		Significance:      level,
		Changes:           changes,
		Description:       describe(changes),
		RouteAffecting:    snap.Type.RouteAffecting(),
		ReducedConfidence: snap.Stale,
		BaselineAt:        e.baseline.Timestamp,
		ObservedAt:        snap.Timestamp,
		DetectedAt:        e.checkedAt,
	}

	e.baseline = snap.Clone()
	e.notified++

	d.logger.Info().
		Str("target_id", snap.TargetID).
		Str("condition", string(snap.Type)).
		Str("significance", level.String()).
		Bool("route_affecting", record.RouteAffecting).
		Bool("reduced_confidence", record.ReducedConfidence).
		Msg(record.Description)

	return record, nil
}

// compare classifies every configured metric and returns the changes that
// reached at least the minor level, most severe first.
func (d *Detector) compare(baseline, current Snapshot) ([]MetricChange, Significance, error) {
	var (
		changes []MetricChange
		level   Significance
	)
	for _, t := range d.thresholds.For(current.Type) {
		change, ok, err := t.Classify(baseline, current)
		if err != nil {
			return nil, SignificanceNone, err
		}
		if !ok || change.Significance == SignificanceNone {
			continue
		}
		changes = append(changes, change)
		if change.Significance > level {
			level = change.Significance
		}
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Significance > changes[j].Significance
	})
	return changes, level, nil
}

// checkLabels rejects a baseline carrying labels outside a categorical scale.
func (d *Detector) checkLabels(snap Snapshot) error {
	for _, t := range d.thresholds.For(snap.Type) {
		if t.Comparator != ComparatorCategorical {
			continue
		}
		if label, ok := snap.Labels[t.Metric]; ok {
			if _, err := t.rank(label); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOrder(last, snap Snapshot) error {
	switch {
	case snap.Timestamp.After(last.Timestamp):
		return nil
	case snap.Stale && snap.Timestamp.Equal(last.Timestamp):
		return nil
	}
	return commute.NewValidationError("timestamp",
		"snapshot for %s/%s at %s is not newer than %s",
		snap.TargetID, snap.Type, snap.Timestamp.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
}

func describe(changes []MetricChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, c.Description)
	}
	return strings.Join(parts, "; ")
}

// Baseline returns the current baseline for a target and condition type.
func (d *Detector) Baseline(targetID string, ct Type) (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[entryKey{targetID, ct}]
	if !ok {
		return Snapshot{}, false
	}
	return e.baseline.Clone(), true
}

// Last returns the most recently accepted snapshot for a target and type.
func (d *Detector) Last(targetID string, ct Type) (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[entryKey{targetID, ct}]
	if !ok {
		return Snapshot{}, false
	}
	return e.last.Clone(), true
}

// State returns the lifecycle state of a target and condition type.
func (d *Detector) State(targetID string, ct Type) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[entryKey{targetID, ct}]; ok {
		return e.state
	}
	return StateUninitialized
}

// Status returns the entries of one target, or of all targets when
// targetID is empty, ordered by target and type.
func (d *Detector) Status(targetID string) []EntryStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]EntryStatus, 0, len(d.entries))
	for k, e := range d.entries {
		if targetID != "" && k.target != targetID {
			continue
		}
		out = append(out, EntryStatus{
			TargetID:       k.target,
			Type:           k.typ,
			State:          e.state,
			BaselineAt:     e.baseline.Timestamp,
			LastObservedAt: e.last.Timestamp,
			LastStale:      e.last.Stale,
			CheckedAt:      e.checkedAt,
			Evaluations:    e.evaluations,
			Notified:       e.notified,
			Discarded:      e.discarded,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetID != out[j].TargetID {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Forget drops all state for a target. Its next snapshot becomes a new baseline.
func (d *Detector) Forget(targetID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.entries {
		if k.target == targetID {
			delete(d.entries, k)
		}
	}
}
