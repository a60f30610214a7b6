// Package conditions models live commute conditions and detects significant
// changes between successive observations of them.
package conditions

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// Condition errors.
var (
	ErrUnknownType         = errors.New("unknown condition type")
	ErrUnknownSignificance = errors.New("unknown significance level")
)

// Type is a kind of monitored condition.
type Type string

// Condition types.
const (
	TypeTraffic Type = "traffic"
	TypeTransit Type = "transit"
	TypeWeather Type = "weather"
	TypeParking Type = "parking"
)

// Types lists every condition type.
var Types = []Type{TypeTraffic, TypeTransit, TypeWeather, TypeParking}

// Valid reports whether t is a known condition type.
func (t Type) Valid() bool {
	switch t {
	case TypeTraffic, TypeTransit, TypeWeather, TypeParking:
		return true
	}
	return false
}

// RouteAffecting reports whether a change of this type can alter travel time
// or path, so routes must be regenerated rather than only re-scored.
func (t Type) RouteAffecting() bool {
	return t == TypeTraffic || t == TypeTransit
}

// Significance orders the severity of a detected change.
type Significance int

// Significance levels, in increasing severity.
const (
	SignificanceNone Significance = iota
	SignificanceMinor
	SignificanceModerate
	SignificanceMajor
	SignificanceCritical
)

var significanceNames = []string{"none", "minor", "moderate", "major", "critical"}

func (s Significance) String() string {
	if s < SignificanceNone || s > SignificanceCritical {
		return fmt.Sprintf("significance(%d)", int(s))
	}
	return significanceNames[s]
}

// ParseSignificance parses a level name such as "moderate".
func ParseSignificance(name string) (Significance, error) {
	for i, n := range significanceNames {
		if strings.EqualFold(n, name) {
			return Significance(i), nil
		}
	}
	return SignificanceNone, fmt.Errorf("%w: %q", ErrUnknownSignificance, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Significance) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Significance) UnmarshalText(b []byte) error {
	v, err := ParseSignificance(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Snapshot is one timestamped observation of a condition type for a target.
// Numeric metrics live in Values, categorical metrics in Labels.
type Snapshot struct {
	TargetID  string             `json:"targetId"`
	Type      Type               `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values,omitempty"`
	Labels    map[string]string  `json:"labels,omitempty"`
	Stale     bool               `json:"stale"`
	Source    string             `json:"source,omitempty"`
}

// Validate checks the structural invariants of a snapshot.
func (s Snapshot) Validate() error {
	verr := &commute.ValidationError{}
	if s.TargetID == "" {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "targetId", Message: "is required"})
	}
	if !s.Type.Valid() {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "type", Message: fmt.Sprintf("unknown condition type %q", s.Type)})
	}
	if s.Timestamp.IsZero() {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "timestamp", Message: "is required"})
	}
	for k, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			verr.Errors = append(verr.Errors, commute.FieldError{Field: "values." + k, Message: "must be a finite number"})
		}
	}
	if len(verr.Errors) == 0 {
		return nil
	}
	return verr
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Values != nil {
		out.Values = make(map[string]float64, len(s.Values))
		for k, v := range s.Values {
			out.Values[k] = v
		}
	}
	if s.Labels != nil {
		out.Labels = make(map[string]string, len(s.Labels))
		for k, v := range s.Labels {
			out.Labels[k] = v
		}
	}
	return out
}

// Target is an origin/destination pair whose conditions are monitored.
type Target struct {
	ID          string        `json:"id"`
	Name        string        `json:"name,omitempty"`
	Origin      commute.Point `json:"origin"`
	Destination commute.Point `json:"destination"`
	Types       []Type        `json:"types"`
}

// Validate checks that the target is usable for monitoring.
func (t Target) Validate() error {
	verr := &commute.ValidationError{}
	if t.ID == "" {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "id", Message: "is required"})
	}
	if !validPoint(t.Origin) {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "origin", Message: "invalid coordinates"})
	}
	if !validPoint(t.Destination) {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "destination", Message: "invalid coordinates"})
	}
	if len(t.Types) == 0 {
		verr.Errors = append(verr.Errors, commute.FieldError{Field: "types", Message: "must name at least one condition type"})
	}
	seen := make(map[Type]bool, len(t.Types))
	for i, ct := range t.Types {
		switch {
		case !ct.Valid():
			verr.Errors = append(verr.Errors, commute.FieldError{Field: fmt.Sprintf("types[%d]", i), Message: fmt.Sprintf("unknown condition type %q", ct)})
		case seen[ct]:
			verr.Errors = append(verr.Errors, commute.FieldError{Field: fmt.Sprintf("types[%d]", i), Message: fmt.Sprintf("duplicate condition type %q", ct)})
		}
		seen[ct] = true
	}
	if len(verr.Errors) == 0 {
		return nil
	}
	return verr
}

func validPoint(p commute.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Watches reports whether the target monitors condition type ct.
func (t Target) Watches(ct Type) bool {
	for _, x := range t.Types {
		if x == ct {
			return true
		}
	}
	return false
}

// MetricChange is the classified difference of one metric between the
// baseline and a new snapshot.
type MetricChange struct {
	Metric       string       `json:"metric"`
	Comparator   Comparator   `json:"comparator"`
	Old          string       `json:"old"`
	New          string       `json:"new"`
	Magnitude    float64      `json:"magnitude"`
	Significance Significance `json:"significance"`
	Description  string       `json:"description"`
}

// ChangeRecord is emitted when a snapshot differs from its baseline by at
// least the notification floor.
type ChangeRecord struct {
	ID                string         `json:"id"`
	TargetID          string         `json:"targetId"`
	Type              Type           `json:"type"`
	Significance      Significance   `json:"significance"`
	Changes           []MetricChange `json:"changes"`
	Description       string         `json:"description"`
	RouteAffecting    bool           `json:"routeAffecting"`
	ReducedConfidence bool           `json:"reducedConfidence"`
	BaselineAt        time.Time      `json:"baselineAt"`
	ObservedAt        time.Time      `json:"observedAt"`
	DetectedAt        time.Time      `json:"detectedAt"`
}
