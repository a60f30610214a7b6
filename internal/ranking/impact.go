package ranking

import (
	"math"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// ScoreChangeThreshold is the composite score movement reported by an
// impact analysis.
const ScoreChangeThreshold = 0.01

// RankChange records a route whose position moved.
type RankChange struct {
	RouteID string `json:"routeId"`
	OldRank int    `json:"oldRank"`
	NewRank int    `json:"newRank"`
}

// ScoreChange records a route whose composite score moved.
type ScoreChange struct {
	RouteID  string  `json:"routeId"`
	OldScore float64 `json:"oldScore"`
	NewScore float64 `json:"newScore"`
	Delta    float64 `json:"delta"`
}

// Impact describes how a ranking reacts to a change of weights.
type Impact struct {
	OldWeights            commute.Weights `json:"oldWeights"`
	NewWeights            commute.Weights `json:"newWeights"`
	RankChanges           []RankChange    `json:"rankChanges"`
	ScoreChanges          []ScoreChange   `json:"scoreChanges"`
	PreviousTopRouteID    string          `json:"previousTopRouteId"`
	NewTopRouteID         string          `json:"newTopRouteId"`
	RecommendationChanged bool            `json:"recommendationChanged"`
}

// PreferenceImpact ranks routes under the current profile and again under
// the proposed weights and reports what moved.
func (e *Engine) PreferenceImpact(routes []commute.Route, current commute.PreferenceProfile, proposed commute.Weights) (*Impact, error) {
	before, err := e.ScoreAndRank(routes, current)
	if err != nil {
		return nil, err
	}
	adjusted := current
	adjusted.Weights = proposed
	after, err := e.ScoreAndRank(routes, adjusted)
	if err != nil {
		return nil, err
	}

	old := make(map[string]commute.RouteAnalysis, len(before))
	for _, a := range before {
		old[a.Route.ID] = a
	}

	impact := &Impact{
		OldWeights:         current.Weights,
		NewWeights:         proposed,
		RankChanges:        []RankChange{},
		ScoreChanges:       []ScoreChange{},
		PreviousTopRouteID: before[0].Route.ID,
		NewTopRouteID:      after[0].Route.ID,
	}
	impact.RecommendationChanged = impact.PreviousTopRouteID != impact.NewTopRouteID

	for _, a := range after {
		prev := old[a.Route.ID]
		if prev.Rank != a.Rank {
			impact.RankChanges = append(impact.RankChanges, RankChange{RouteID: a.Route.ID, OldRank: prev.Rank, NewRank: a.Rank})
		}
		if d := a.Score - prev.Score; math.Abs(d) > ScoreChangeThreshold {
			impact.ScoreChanges = append(impact.ScoreChanges, ScoreChange{RouteID: a.Route.ID, OldScore: prev.Score, NewScore: a.Score, Delta: d})
		}
	}
	return impact, nil
}

// AdjustWeight sets criterion c to value and rescales the other weights
// proportionally so the total stays 100. When the other weights are all
// zero the remainder is shared equally.
func AdjustWeight(w commute.Weights, c commute.Criterion, value float64) (commute.Weights, error) {
	if value < 0 || value > 100 || math.IsNaN(value) {
		return commute.Weights{}, commute.NewValidationError("weights."+string(c), "must be between 0 and 100, got %g", value)
	}

	var rest float64
	for _, o := range commute.Criteria {
		if o != c {
			rest += w.Of(o)
		}
	}

	remainder := 100 - value
	var out commute.Scores
	for _, o := range commute.Criteria {
		switch {
		case o == c:
			out.Set(o, value)
		case rest == 0:
			out.Set(o, remainder/float64(len(commute.Criteria)-1))
		default:
			out.Set(o, w.Of(o)/rest*remainder)
		}
	}
	return commute.Weights{Time: out.Time, Cost: out.Cost, Comfort: out.Comfort, Reliability: out.Reliability}, nil
}
