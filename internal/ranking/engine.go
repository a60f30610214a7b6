package ranking

import (
	"math"
	"sort"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// DefaultScoreEpsilon is the width of the grid composite scores are rounded
// to before ordering. Scores that round to the same grid point are tied.
const DefaultScoreEpsilon = 1e-9

// Scaling selects how raw criterion values are mapped into [0,1].
type Scaling string

const (
	// ScalingAnchored widens the batch bounds to the reference anchors.
	ScalingAnchored Scaling = "anchored"
	// ScalingBatch uses the batch minimum and maximum only.
	ScalingBatch Scaling = "batch"
)

// Config holds configuration for the ranking engine.
type Config struct {
	// ScoreEpsilon is the tie grid width for composite scores.
	// Default: 1e-9
	ScoreEpsilon float64

	// Scaling selects the normalization bounds.
	// Default: ScalingAnchored
	Scaling Scaling

	// Anchors are the reference bounds for anchored scaling.
	// Default: DefaultAnchors
	Anchors *Bounds
}

// Engine scores and orders route batches.
type Engine struct {
	epsilon float64
	scaling Scaling
	anchors Bounds
}

// NewEngine creates a ranking engine. Without an explicit Scaling the engine
// normalizes against the batch bounds widened to Anchors, not plain batch
// min-max; set ScalingBatch for the latter.
func NewEngine(cfg Config) *Engine {
	eps := cfg.ScoreEpsilon
	if eps <= 0 {
		eps = DefaultScoreEpsilon
	}
	scaling := cfg.Scaling
	if scaling != ScalingBatch {
		scaling = ScalingAnchored
	}
	anchors := DefaultAnchors
	if cfg.Anchors != nil {
		anchors = *cfg.Anchors
	}
	return &Engine{epsilon: eps, scaling: scaling, anchors: anchors}
}

// Scaling returns the normalization mode in use.
func (e *Engine) Scaling() Scaling {
	return e.scaling
}

func (e *Engine) normalize(routes []commute.Route) ([]commute.Scores, error) {
	var (
		out []commute.Scores
		err error
	)
	if e.scaling == ScalingBatch {
		out, _, err = Normalize(routes)
	} else {
		out, _, err = NormalizeAnchored(routes, e.anchors)
	}
	return out, err
}

// CompositeScore is the weighted sum of normalized criteria.
func CompositeScore(w commute.Weights, normalized commute.Scores) float64 {
	var total float64
	for _, c := range commute.Criteria {
		total += w.Of(c) / 100 * normalized.Of(c)
	}
	return total
}

// ScoreAndRank validates the profile and the batch, scores every route and
// returns the analyses in rank order. Scores are rounded to the epsilon grid
// and routes on the same grid point are ordered by reliability (higher
// first), then estimated time (shorter first), then route ID. A profile
// whose weights do not total 100 is rejected before any route is looked at.
//
// Under the default ScalingAnchored the normalized values differ from plain
// batch min-max. A criterion on which every route agrees scores by its
// distance from the anchors rather than 1.0, so a one-route batch scores
// below 1.0 (a 30 minute, cost 2 trip gets 0.75 for time). Because each
// criterion's span is widened by a different amount, the weights act on
// rescaled differences and two routes can swap places relative to
// ScalingBatch: at 60/40 time/cost, 30 min for 10 beats 40 min for 2 under
// batch scaling and loses under anchored scaling. ScalingBatch gives the
// plain min-max behaviour, with 1.0 for a zero range.
func (e *Engine) ScoreAndRank(routes []commute.Route, profile commute.PreferenceProfile) ([]commute.RouteAnalysis, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := commute.ValidateBatch(routes); err != nil {
		return nil, err
	}

	normalized, err := e.normalize(routes)
	if err != nil {
		return nil, err
	}

	analyses := make([]commute.RouteAnalysis, len(routes))
	for i, r := range routes {
		analyses[i] = commute.RouteAnalysis{
			Route:      r,
			Weights:    profile.Weights,
			Raw:        commute.RawScores(r),
			Normalized: normalized[i],
			Score:      CompositeScore(profile.Weights, normalized[i]),
		}
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return e.before(analyses[i], analyses[j])
	})

	summaries := summarize(analyses)
	for i := range analyses {
		analyses[i].Rank = i + 1
		analyses[i].Tradeoffs = summaries[i]
	}
	return analyses, nil
}

// grid rounds a composite score to the epsilon grid. Comparing grid points
// keeps ties transitive.
func (e *Engine) grid(score float64) float64 {
	return math.Round(score / e.epsilon)
}

// before reports whether a ranks ahead of b.
func (e *Engine) before(a, b commute.RouteAnalysis) bool {
	if ga, gb := e.grid(a.Score), e.grid(b.Score); ga != gb {
		return ga > gb
	}
	if a.Route.ReliabilityScore != b.Route.ReliabilityScore {
		return a.Route.ReliabilityScore > b.Route.ReliabilityScore
	}
	if a.Route.EstimatedMinutes != b.Route.EstimatedMinutes {
		return a.Route.EstimatedMinutes < b.Route.EstimatedMinutes
	}
	return a.Route.ID < b.Route.ID
}

// Tied reports whether two composite scores round to the same grid point.
func (e *Engine) Tied(a, b float64) bool {
	return e.grid(a) == e.grid(b)
}
