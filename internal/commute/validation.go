package commute

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// WeightTolerance is how far the weight total may drift from 100.
const WeightTolerance = 0.01

// Bounds of the stress and reliability scales.
const (
	MinScale = 1
	MaxScale = 10
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Errors []FieldError
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Validate checks the weight bounds and that the weights total 100.
func (p PreferenceProfile) Validate() error {
	verr := &ValidationError{}
	for _, c := range Criteria {
		w := p.Weights.Of(c)
		if math.IsNaN(w) || w < 0 || w > 100 {
			verr.add("weights."+string(c), "must be between 0 and 100, got %g", w)
		}
	}
	if sum := p.Weights.Sum(); math.Abs(sum-100) > WeightTolerance {
		verr.add("weights", "must sum to 100, got %g", sum)
	}
	if p.MaxWalkingKm < 0 {
		verr.add("maxWalkingKm", "must not be negative")
	}
	for i, m := range p.PreferredModes {
		if !m.Valid() {
			verr.add(fmt.Sprintf("preferredModes[%d]", i), "unknown transport mode %q", m)
		}
	}
	return verr.orNil()
}

// Validate checks the structural invariants of a route. The field names in
// the returned error are prefixed with prefix.
func (r Route) Validate(prefix string) error {
	verr := &ValidationError{}
	if r.ID == "" {
		verr.add(prefix+"id", "is required")
	}
	if len(r.Segments) == 0 {
		verr.add(prefix+"segments", "must contain at least one segment")
	}
	for i, s := range r.Segments {
		if !s.Mode.Valid() {
			verr.add(fmt.Sprintf("%ssegments[%d].mode", prefix, i), "unknown transport mode %q", s.Mode)
		}
		if s.DistanceKm < 0 || s.DurationMinutes < 0 {
			verr.add(fmt.Sprintf("%ssegments[%d]", prefix, i), "distance and duration must not be negative")
		}
	}
	if r.StressLevel < MinScale || r.StressLevel > MaxScale {
		verr.add(prefix+"stressLevel", "must be between %d and %d, got %d", MinScale, MaxScale, r.StressLevel)
	}
	if r.ReliabilityScore < MinScale || r.ReliabilityScore > MaxScale {
		verr.add(prefix+"reliabilityScore", "must be between %d and %d, got %d", MinScale, MaxScale, r.ReliabilityScore)
	}
	if r.EstimatedMinutes < 0 {
		verr.add(prefix+"estimatedMinutes", "must not be negative")
	}
	if r.EstimatedCost < 0 || math.IsNaN(r.EstimatedCost) {
		verr.add(prefix+"estimatedCost", "must not be negative")
	}
	if !r.DepartureTime.IsZero() && !r.ArrivalTime.IsZero() && !r.ArrivalTime.After(r.DepartureTime) {
		verr.add(prefix+"arrivalTime", "must be after departureTime")
	}
	return verr.orNil()
}

// ValidateBatch checks a batch of candidate routes: it must be non-empty,
// every route must be valid and route IDs must be unique.
func ValidateBatch(routes []Route) error {
	if len(routes) == 0 {
		return NewValidationError("routes", "must contain at least one route")
	}
	verr := &ValidationError{}
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		prefix := fmt.Sprintf("routes[%d].", i)
		var rerr *ValidationError
		if err := r.Validate(prefix); errors.As(err, &rerr) {
			verr.Errors = append(verr.Errors, rerr.Errors...)
		}
		if r.ID != "" && seen[r.ID] {
			verr.add(prefix+"id", "duplicate route id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return verr.orNil()
}
