package conditions

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// Comparator selects how a metric's change magnitude is measured.
type Comparator string

// Comparators.
const (
	// ComparatorAbsolute measures |new-old| in the metric's unit.
	ComparatorAbsolute Comparator = "absolute"
	// ComparatorPercentage measures |new-old|/|old| in percent.
	ComparatorPercentage Comparator = "percentage"
	// ComparatorCategorical measures the distance between two labels on an
	// ordered scale.
	ComparatorCategorical Comparator = "categorical"
)

// ErrInvalidThreshold is returned for malformed threshold definitions.
var ErrInvalidThreshold = errors.New("invalid threshold")

// Threshold is the trigger configuration for one metric of one condition type.
type Threshold struct {
	Type       Type           `yaml:"condition" json:"condition"`
	Metric     string         `yaml:"metric" json:"metric"`
	Comparator Comparator     `yaml:"comparator" json:"comparator"`
	Minor      float64        `yaml:"minor" json:"minor"`
	Moderate   float64        `yaml:"moderate" json:"moderate"`
	Major      float64        `yaml:"major" json:"major"`
	Critical   float64        `yaml:"critical" json:"critical"`
	Scale      map[string]int `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// Validate checks that trigger values are ordered and the comparator is usable.
func (t Threshold) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %s: unknown condition type %q", ErrInvalidThreshold, t.Metric, t.Type)
	}
	if t.Metric == "" {
		return fmt.Errorf("%w: metric is required", ErrInvalidThreshold)
	}
	switch t.Comparator {
	case ComparatorAbsolute, ComparatorPercentage:
	case ComparatorCategorical:
		if len(t.Scale) == 0 {
			return fmt.Errorf("%w: %s/%s: categorical comparator needs a scale", ErrInvalidThreshold, t.Type, t.Metric)
		}
	default:
		return fmt.Errorf("%w: %s/%s: unknown comparator %q", ErrInvalidThreshold, t.Type, t.Metric, t.Comparator)
	}
	if t.Minor <= 0 || t.Moderate < t.Minor || t.Major < t.Moderate || t.Critical < t.Major {
		return fmt.Errorf("%w: %s/%s: trigger values must be positive and non-decreasing", ErrInvalidThreshold, t.Type, t.Metric)
	}
	return nil
}

// Level maps a change magnitude to the most severe trigger it reaches.
func (t Threshold) Level(magnitude float64) Significance {
	switch {
	case magnitude >= t.Critical:
		return SignificanceCritical
	case magnitude >= t.Major:
		return SignificanceMajor
	case magnitude >= t.Moderate:
		return SignificanceModerate
	case magnitude >= t.Minor:
		return SignificanceMinor
	}
	return SignificanceNone
}

// Classify compares one metric between a baseline and a new snapshot. It
// returns false when the metric is missing from either snapshot. A label
// outside a categorical scale is a validation error naming the metric.
func (t Threshold) Classify(baseline, current Snapshot) (MetricChange, bool, error) {
	change := MetricChange{Metric: t.Metric, Comparator: t.Comparator}

	switch t.Comparator {
	case ComparatorAbsolute, ComparatorPercentage:
		oldV, ok1 := baseline.Values[t.Metric]
		newV, ok2 := current.Values[t.Metric]
		if !ok1 || !ok2 {
			return change, false, nil
		}
		change.Old, change.New = formatNumber(oldV), formatNumber(newV)
		if t.Comparator == ComparatorAbsolute {
			change.Magnitude = math.Abs(newV - oldV)
		} else {
			change.Magnitude = percentChange(oldV, newV)
		}
		change.Description = describeNumeric(t.Type, t.Metric, oldV, newV)

	case ComparatorCategorical:
		oldL, ok1 := baseline.Labels[t.Metric]
		newL, ok2 := current.Labels[t.Metric]
		if !ok1 || !ok2 {
			return change, false, nil
		}
		oldRank, err := t.rank(oldL)
		if err != nil {
			return change, false, err
		}
		newRank, err := t.rank(newL)
		if err != nil {
			return change, false, err
		}
		change.Old, change.New = oldL, newL
		change.Magnitude = math.Abs(float64(newRank - oldRank))
		change.Description = fmt.Sprintf("%s %s changed from %s to %s", titleCase(string(t.Type)), humanize(t.Metric), oldL, newL)

	default:
		return change, false, fmt.Errorf("%w: unknown comparator %q", ErrInvalidThreshold, t.Comparator)
	}

	change.Significance = t.Level(change.Magnitude)
	return change, true, nil
}

func (t Threshold) rank(label string) (int, error) {
	r, ok := t.Scale[strings.ToLower(label)]
	if !ok {
		return 0, commute.NewValidationError("labels."+t.Metric, "unknown %s value %q", humanize(t.Metric), label)
	}
	return r, nil
}

// percentChange is infinite when a zero baseline becomes non-zero.
func percentChange(oldV, newV float64) float64 {
	if oldV == 0 {
		if newV == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs((newV - oldV) / oldV * 100)
}

func describeNumeric(ct Type, metric string, oldV, newV float64) string {
	direction := "increased"
	if newV < oldV {
		direction = "decreased"
	}
	return fmt.Sprintf("%s %s %s from %s to %s (change: %s)",
		titleCase(string(ct)), humanize(metric), direction, formatNumber(oldV), formatNumber(newV), formatNumber(math.Abs(newV-oldV)))
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func humanize(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ThresholdSet is the static change-threshold configuration.
type ThresholdSet struct {
	// NotificationFloor is the lowest significance that emits a change record.
	NotificationFloor Significance `yaml:"notificationFloor" json:"notificationFloor"`
	Thresholds        []Threshold  `yaml:"thresholds" json:"thresholds"`
}

// For returns the thresholds configured for condition type ct.
func (s ThresholdSet) For(ct Type) []Threshold {
	var out []Threshold
	for _, t := range s.Thresholds {
		if t.Type == ct {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks every threshold and rejects duplicate metrics.
func (s ThresholdSet) Validate() error {
	seen := make(map[string]bool, len(s.Thresholds))
	for _, t := range s.Thresholds {
		if err := t.Validate(); err != nil {
			return err
		}
		key := string(t.Type) + "/" + t.Metric
		if seen[key] {
			return fmt.Errorf("%w: duplicate threshold for %s", ErrInvalidThreshold, key)
		}
		seen[key] = true
	}
	return nil
}

// Metrics returns the configured metric names for ct in sorted order.
func (s ThresholdSet) Metrics(ct Type) []string {
	var out []string
	for _, t := range s.For(ct) {
		out = append(out, t.Metric)
	}
	sort.Strings(out)
	return out
}

// DefaultThresholds returns the built-in threshold configuration.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		NotificationFloor: SignificanceModerate,
		Thresholds: []Threshold{
			{Type: TypeTraffic, Metric: "delay_minutes", Comparator: ComparatorAbsolute, Minor: 5, Moderate: 10, Major: 20, Critical: 30},
			{Type: TypeTraffic, Metric: "average_speed_kmh", Comparator: ComparatorPercentage, Minor: 10, Moderate: 20, Major: 30, Critical: 40},
			{Type: TypeTraffic, Metric: "congestion_level", Comparator: ComparatorCategorical, Minor: 1, Moderate: 2, Major: 3, Critical: 4,
				Scale: map[string]int{"light": 1, "moderate": 2, "heavy": 3, "severe": 4}},

			{Type: TypeTransit, Metric: "delay_minutes", Comparator: ComparatorAbsolute, Minor: 3, Moderate: 8, Major: 15, Critical: 25},
			{Type: TypeTransit, Metric: "service_status", Comparator: ComparatorCategorical, Minor: 1, Moderate: 2, Major: 3, Critical: 4,
				Scale: map[string]int{"normal": 1, "minor_delays": 2, "delays": 3, "major_delays": 4, "disrupted": 5, "suspended": 6, "cancelled": 7}},

			{Type: TypeWeather, Metric: "visibility_km", Comparator: ComparatorAbsolute, Minor: 2, Moderate: 5, Major: 8, Critical: 10},
			{Type: TypeWeather, Metric: "precipitation_probability", Comparator: ComparatorAbsolute, Minor: 20, Moderate: 40, Major: 60, Critical: 80},
			{Type: TypeWeather, Metric: "condition", Comparator: ComparatorCategorical, Minor: 1, Moderate: 2, Major: 3, Critical: 4,
				Scale: map[string]int{"clear": 1, "cloudy": 2, "light_rain": 3, "rain": 4, "heavy_rain": 5, "snow": 6, "heavy_snow": 7, "fog": 8, "storm": 9, "ice": 10}},

			{Type: TypeParking, Metric: "availability", Comparator: ComparatorCategorical, Minor: 1, Moderate: 2, Major: 3, Critical: 4,
				Scale: map[string]int{"abundant": 1, "moderate": 2, "limited": 3, "scarce": 4}},
			{Type: TypeParking, Metric: "average_cost_per_hour", Comparator: ComparatorAbsolute, Minor: 1, Moderate: 3, Major: 5, Critical: 8},
		},
	}
}

// LoadThresholds reads a threshold set from a YAML file. Unknown keys are
// rejected. A file without thresholds keeps the defaults and only overrides
// the notification floor.
func LoadThresholds(path string) (ThresholdSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return ThresholdSet{}, fmt.Errorf("opening thresholds file: %w", err)
	}
	defer f.Close()

	var set ThresholdSet
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return ThresholdSet{}, fmt.Errorf("parsing thresholds file %s: %w", path, err)
	}

	if len(set.Thresholds) == 0 {
		set.Thresholds = DefaultThresholds().Thresholds
	}
	if set.NotificationFloor == SignificanceNone {
		set.NotificationFloor = SignificanceModerate
	}
	for i := range set.Thresholds {
		t := &set.Thresholds[i]
		if t.Scale != nil {
			lowered := make(map[string]int, len(t.Scale))
			for k, v := range t.Scale {
				lowered[strings.ToLower(k)] = v
			}
			t.Scale = lowered
		}
	}
	if err := set.Validate(); err != nil {
		return ThresholdSet{}, err
	}
	return set, nil
}
