// Package ranking scores candidate routes against a preference profile.
//
// The pipeline is pure: Normalize scales each criterion into [0,1] across the
// batch, the Engine combines the scaled values with the profile weights and
// orders the routes, and Compare reports pairwise deltas in native units.
// Nothing here keeps state between calls, so an Engine may be shared by
// concurrent requests.
package ranking

import (
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// Bounds holds the per-criterion minimum and maximum raw values of a batch.
type Bounds struct {
	Min commute.Scores
	Max commute.Scores
}

// Range returns max-min for criterion c.
func (b Bounds) Range(c commute.Criterion) float64 {
	return b.Max.Of(c) - b.Min.Of(c)
}

// BoundsOf computes the raw value bounds of a non-empty batch.
func BoundsOf(routes []commute.Route) Bounds {
	var b Bounds
	for i, r := range routes {
		raw := commute.RawScores(r)
		for _, c := range commute.Criteria {
			v := raw.Of(c)
			if i == 0 || v < b.Min.Of(c) {
				b.Min.Set(c, v)
			}
			if i == 0 || v > b.Max.Of(c) {
				b.Max.Set(c, v)
			}
		}
	}
	return b
}

// Normalize min-max scales every criterion of every route into [0,1], where
// 1 is the most favourable value in the batch. A criterion on which all
// routes agree gives every route 1.0.
func Normalize(routes []commute.Route) ([]commute.Scores, Bounds, error) {
	if len(routes) == 0 {
		return nil, Bounds{}, commute.NewValidationError("routes", "must contain at least one route")
	}

	bounds := BoundsOf(routes)
	return scale(routes, bounds), bounds, nil
}

// DefaultAnchors are the reference bounds used by anchored scaling: a
// two-hour trip and a cost of 20 score zero, and the 1-10 scales span their
// full width.
var DefaultAnchors = Bounds{
	Min: commute.Scores{Time: 0, Cost: 0, Comfort: commute.MinScale, Reliability: commute.MinScale},
	Max: commute.Scores{Time: 120, Cost: 20, Comfort: commute.MaxScale, Reliability: commute.MaxScale},
}

// Widen returns bounds covering both b and other.
func (b Bounds) Widen(other Bounds) Bounds {
	out := b
	for _, c := range commute.Criteria {
		if v := other.Min.Of(c); v < out.Min.Of(c) {
			out.Min.Set(c, v)
		}
		if v := other.Max.Of(c); v > out.Max.Of(c) {
			out.Max.Set(c, v)
		}
	}
	return out
}

// NormalizeAnchored is Normalize with the batch bounds widened to include
// anchors. Scores then reflect how far a route sits from the reference
// extremes as well as from its siblings, so a two-route batch is not
// reduced to 0/1 values on every criterion.
func NormalizeAnchored(routes []commute.Route, anchors Bounds) ([]commute.Scores, Bounds, error) {
	if len(routes) == 0 {
		return nil, Bounds{}, commute.NewValidationError("routes", "must contain at least one route")
	}
	bounds := BoundsOf(routes).Widen(anchors)
	return scale(routes, bounds), bounds, nil
}

func scale(routes []commute.Route, bounds Bounds) []commute.Scores {
	out := make([]commute.Scores, len(routes))
	for i, r := range routes {
		for _, c := range commute.Criteria {
			out[i].Set(c, NormalizeValue(c, commute.RawValue(r, c), bounds.Min.Of(c), bounds.Max.Of(c)))
		}
	}
	return out
}

// NormalizeValue scales raw into [0,1] for criterion c given the batch bounds.
func NormalizeValue(c commute.Criterion, raw, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return 1.0
	}
	if c.LowerIsBetter() {
		return (hi - raw) / span
	}
	return (raw - lo) / span
}

// Denormalize maps a normalized value back onto the raw scale of criterion c.
// With a zero range every value maps to the shared raw value.
func Denormalize(c commute.Criterion, v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return lo
	}
	if c.LowerIsBetter() {
		return hi - v*span
	}
	return lo + v*span
}
