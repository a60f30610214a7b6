// Package commute holds the domain types shared by the ranking, explanation
// and monitoring packages: candidate routes, preference profiles and the
// per-route analysis records produced by the ranking engine.
package commute

import (
	"time"
)

// TransportMode is a way of travelling a route segment.
type TransportMode string

// Supported transport modes.
const (
	ModeDriving       TransportMode = "driving"
	ModePublicTransit TransportMode = "public_transit"
	ModeWalking       TransportMode = "walking"
	ModeCycling       TransportMode = "cycling"
	ModeRideshare     TransportMode = "rideshare"
)

// Valid reports whether m is a known transport mode.
func (m TransportMode) Valid() bool {
	switch m {
	case ModeDriving, ModePublicTransit, ModeWalking, ModeCycling, ModeRideshare:
		return true
	}
	return false
}

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Segment is one leg of a route travelled with a single mode.
type Segment struct {
	Mode            TransportMode `json:"mode"`
	Start           Point         `json:"start"`
	End             Point         `json:"end"`
	DistanceKm      float64       `json:"distanceKm"`
	DurationMinutes float64       `json:"durationMinutes"`
	Instructions    string        `json:"instructions,omitempty"`
}

// Route is a candidate commute produced by an external route source.
// A route is treated as immutable once handed to the ranking engine.
type Route struct {
	ID               string          `json:"id"`
	Segments         []Segment       `json:"segments"`
	TotalDistanceKm  float64         `json:"totalDistanceKm"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
	EstimatedCost    float64         `json:"estimatedCost"`
	StressLevel      int             `json:"stressLevel"`
	ReliabilityScore int             `json:"reliabilityScore"`
	Modes            []TransportMode `json:"modes"`
	DepartureTime    time.Time       `json:"departureTime"`
	ArrivalTime      time.Time       `json:"arrivalTime"`
}

// UsesMode reports whether the route travels any distance with mode m.
func (r Route) UsesMode(m TransportMode) bool {
	for _, mode := range r.Modes {
		if mode == m {
			return true
		}
	}
	for _, s := range r.Segments {
		if s.Mode == m {
			return true
		}
	}
	return false
}

// Weights are the relative importance, in percent, of each criterion.
type Weights struct {
	Time        float64 `json:"time"`
	Cost        float64 `json:"cost"`
	Comfort     float64 `json:"comfort"`
	Reliability float64 `json:"reliability"`
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.Time + w.Cost + w.Comfort + w.Reliability
}

// Of returns the weight assigned to criterion c.
func (w Weights) Of(c Criterion) float64 {
	switch c {
	case CriterionTime:
		return w.Time
	case CriterionCost:
		return w.Cost
	case CriterionComfort:
		return w.Comfort
	case CriterionReliability:
		return w.Reliability
	}
	return 0
}

// PreferenceProfile is a named set of weights owned by the caller.
type PreferenceProfile struct {
	Name            string          `json:"name"`
	Weights         Weights         `json:"weights"`
	MaxWalkingKm    float64         `json:"maxWalkingKm,omitempty"`
	PreferredModes  []TransportMode `json:"preferredModes,omitempty"`
	AvoidedFeatures []string        `json:"avoidedFeatures,omitempty"`
}

// DefaultMaxWalkingKm is applied when a profile leaves MaxWalkingKm unset.
const DefaultMaxWalkingKm = 2.0

// Criterion is one of the four comparison axes.
type Criterion string

// The comparison axes. Comfort is derived from a route's stress level.
const (
	CriterionTime        Criterion = "time"
	CriterionCost        Criterion = "cost"
	CriterionComfort     Criterion = "comfort"
	CriterionReliability Criterion = "reliability"
)

// Criteria lists every criterion in presentation order.
var Criteria = []Criterion{CriterionTime, CriterionCost, CriterionComfort, CriterionReliability}

// LowerIsBetter reports whether smaller raw values are favourable for c.
func (c Criterion) LowerIsBetter() bool {
	return c == CriterionTime || c == CriterionCost || c == CriterionComfort
}

// Unit returns the native unit of the criterion's raw values.
func (c Criterion) Unit() string {
	switch c {
	case CriterionTime:
		return "minutes"
	case CriterionCost:
		return "currency"
	case CriterionComfort:
		return "stress (1-10)"
	case CriterionReliability:
		return "reliability (1-10)"
	}
	return ""
}

// RawValue extracts the native value of criterion c from a route.
func RawValue(r Route, c Criterion) float64 {
	switch c {
	case CriterionTime:
		return float64(r.EstimatedMinutes)
	case CriterionCost:
		return r.EstimatedCost
	case CriterionComfort:
		return float64(r.StressLevel)
	case CriterionReliability:
		return float64(r.ReliabilityScore)
	}
	return 0
}

// Scores holds one value per criterion.
type Scores struct {
	Time        float64 `json:"time"`
	Cost        float64 `json:"cost"`
	Comfort     float64 `json:"comfort"`
	Reliability float64 `json:"reliability"`
}

// Of returns the value for criterion c.
func (s Scores) Of(c Criterion) float64 {
	switch c {
	case CriterionTime:
		return s.Time
	case CriterionCost:
		return s.Cost
	case CriterionComfort:
		return s.Comfort
	case CriterionReliability:
		return s.Reliability
	}
	return 0
}

// Set stores v as the value for criterion c.
func (s *Scores) Set(c Criterion, v float64) {
	switch c {
	case CriterionTime:
		s.Time = v
	case CriterionCost:
		s.Cost = v
	case CriterionComfort:
		s.Comfort = v
	case CriterionReliability:
		s.Reliability = v
	}
}

// RawScores collects the native criterion values of a route.
// The comfort entry carries the raw stress level.
func RawScores(r Route) Scores {
	var s Scores
	for _, c := range Criteria {
		s.Set(c, RawValue(r, c))
	}
	return s
}

// ComparisonPoint describes how a route relates to one other route on one criterion.
type ComparisonPoint struct {
	Criterion    Criterion `json:"criterion"`
	OtherRouteID string    `json:"otherRouteId"`
	Value        float64   `json:"value"`
	OtherValue   float64   `json:"otherValue"`
	Text         string    `json:"text"`
}

// TradeoffSummary is the batch-relative description of a route.
type TradeoffSummary struct {
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	WhenToChoose     []string          `json:"whenToChoose"`
	WhenNotToChoose  []string          `json:"whenNotToChoose"`
	ComparisonPoints []ComparisonPoint `json:"comparisonPoints"`
	StrongCriteria   []Criterion       `json:"strongCriteria"`
	WeakCriteria     []Criterion       `json:"weakCriteria"`
}

// RouteAnalysis is the ranking engine's per-route result. It is built fresh
// for every scoring call and must not be modified afterwards.
type RouteAnalysis struct {
	Route      Route           `json:"route"`
	Weights    Weights         `json:"weights"`
	Raw        Scores          `json:"raw"`
	Normalized Scores          `json:"normalized"`
	Score      float64         `json:"score"`
	Rank       int             `json:"rank"`
	Tradeoffs  TradeoffSummary `json:"tradeoffs"`
}
