package ranking

import (
	"errors"
	"fmt"
	"math"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// ErrUnknownRoute is returned when a comparison lookup names a route that is
// not part of the compared batch.
var ErrUnknownRoute = errors.New("route not in comparison")

// Outcome labels a criterion delta from the base route's point of view.
type Outcome string

// Outcomes.
const (
	OutcomeImprovement Outcome = "improvement"
	OutcomeDegradation Outcome = "degradation"
	OutcomeEqual       Outcome = "equal"
)

func (o Outcome) flip() Outcome {
	switch o {
	case OutcomeImprovement:
		return OutcomeDegradation
	case OutcomeDegradation:
		return OutcomeImprovement
	}
	return o
}

// CriterionDelta is the difference between two routes on one criterion,
// in the criterion's native unit. Delta is OtherValue-BaseValue and Outcome
// tells whether switching from the base route to the other route is an
// improvement on this criterion.
type CriterionDelta struct {
	Criterion  commute.Criterion `json:"criterion"`
	Unit       string            `json:"unit"`
	BaseValue  float64           `json:"baseValue"`
	OtherValue float64           `json:"otherValue"`
	Delta      float64           `json:"delta"`
	Outcome    Outcome           `json:"outcome"`
}

// PairComparison holds all criterion deltas for one pair of routes.
type PairComparison struct {
	BaseID  string           `json:"baseId"`
	OtherID string           `json:"otherId"`
	Deltas  []CriterionDelta `json:"deltas"`
}

// Reverse returns the same comparison seen from the other route.
func (p PairComparison) Reverse() PairComparison {
	out := PairComparison{BaseID: p.OtherID, OtherID: p.BaseID, Deltas: make([]CriterionDelta, len(p.Deltas))}
	for i, d := range p.Deltas {
		out.Deltas[i] = CriterionDelta{
			Criterion:  d.Criterion,
			Unit:       d.Unit,
			BaseValue:  d.OtherValue,
			OtherValue: d.BaseValue,
			Delta:      -d.Delta,
			Outcome:    d.Outcome.flip(),
		}
	}
	return out
}

// Comparison is the pairwise trade-off structure for a ranked batch.
// Every unordered pair is stored once. Pairs involving the reference route use
// it as base; other pairs use the higher ranked route as base.
type Comparison struct {
	ReferenceID string           `json:"referenceId"`
	Pairs       []PairComparison `json:"pairs"`

	routes map[string]bool
	index  map[[2]string]int
}

// Compare builds the pairwise comparison of a ranked batch. An empty
// referenceID selects the top-ranked route.
func Compare(ranked []commute.RouteAnalysis, referenceID string) (*Comparison, error) {
	if len(ranked) == 0 {
		return nil, commute.NewValidationError("routes", "must contain at least one route")
	}
	if referenceID == "" {
		referenceID = ranked[0].Route.ID
	}

	refIdx := -1
	for i, a := range ranked {
		if a.Route.ID == referenceID {
			refIdx = i
			break
		}
	}
	if refIdx < 0 {
		return nil, commute.NewValidationError("referenceId", "route %q is not in the batch", referenceID)
	}

	// The reference route goes first so it is always the base of its pairs.
	order := make([]commute.RouteAnalysis, 0, len(ranked))
	order = append(order, ranked[refIdx])
	order = append(order, ranked[:refIdx]...)
	order = append(order, ranked[refIdx+1:]...)

	cmp := &Comparison{
		ReferenceID: referenceID,
		Pairs:       make([]PairComparison, 0, len(ranked)*(len(ranked)-1)/2),
		routes:      make(map[string]bool, len(ranked)),
		index:       make(map[[2]string]int),
	}
	for _, a := range order {
		cmp.routes[a.Route.ID] = true
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			pair := comparePair(order[i], order[j])
			cmp.index[[2]string{pair.BaseID, pair.OtherID}] = len(cmp.Pairs)
			cmp.Pairs = append(cmp.Pairs, pair)
		}
	}
	return cmp, nil
}

func comparePair(base, other commute.RouteAnalysis) PairComparison {
	p := PairComparison{BaseID: base.Route.ID, OtherID: other.Route.ID, Deltas: make([]CriterionDelta, 0, len(commute.Criteria))}
	for _, c := range commute.Criteria {
		b, o := base.Raw.Of(c), other.Raw.Of(c)
		outcome := OutcomeEqual
		switch {
		case favourable(c, o, b):
			outcome = OutcomeImprovement
		case favourable(c, b, o):
			outcome = OutcomeDegradation
		}
		delta := o - b
		if math.Abs(delta) <= valueEpsilon {
			delta = 0
		}
		p.Deltas = append(p.Deltas, CriterionDelta{
			Criterion:  c,
			Unit:       c.Unit(),
			BaseValue:  b,
			OtherValue: o,
			Delta:      delta,
			Outcome:    outcome,
		})
	}
	return p
}

// Versus returns the comparison of route a against route b with a as base.
// Versus(a, b) and Versus(b, a) describe the same pair with opposite signs.
func (c *Comparison) Versus(a, b string) (PairComparison, error) {
	if !c.routes[a] || !c.routes[b] || a == b {
		return PairComparison{}, fmt.Errorf("%w: %s vs %s", ErrUnknownRoute, a, b)
	}
	if i, ok := c.index[[2]string{a, b}]; ok {
		return c.Pairs[i], nil
	}
	return c.Pairs[c.index[[2]string{b, a}]].Reverse(), nil
}

// For returns every pair involving routeID, oriented with routeID as base.
func (c *Comparison) For(routeID string) ([]PairComparison, error) {
	if !c.routes[routeID] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, routeID)
	}
	var out []PairComparison
	for _, p := range c.Pairs {
		switch routeID {
		case p.BaseID:
			out = append(out, p)
		case p.OtherID:
			out = append(out, p.Reverse())
		}
	}
	return out, nil
}
