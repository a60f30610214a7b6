package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// valueEpsilon is the raw-value difference treated as equal.
const valueEpsilon = 1e-9

// modeOrder fixes the order in which mode guidance is listed.
var modeOrder = []commute.TransportMode{
	commute.ModePublicTransit,
	commute.ModeDriving,
	commute.ModeCycling,
	commute.ModeWalking,
	commute.ModeRideshare,
}

var modeGuidance = map[commute.TransportMode]string{
	commute.ModePublicTransit: "When you want to relax or work during the commute",
	commute.ModeDriving:       "When you need flexibility and control over your schedule",
	commute.ModeCycling:       "When the weather is pleasant and you want exercise",
	commute.ModeWalking:       "When the distance is short and you want to avoid traffic",
	commute.ModeRideshare:     "When you want door-to-door travel without looking for parking",
}

var modeCaveats = map[commute.TransportMode]string{
	commute.ModePublicTransit: "During transit strikes or major service disruptions",
	commute.ModeDriving:       "When parking is unavailable or very expensive",
	commute.ModeCycling:       "In rain, snow or extreme temperatures",
	commute.ModeWalking:       "In heavy rain or when carrying heavy items",
	commute.ModeRideshare:     "During surge pricing or peak demand",
}

var strongClause = map[commute.Criterion]string{
	commute.CriterionTime:        "When arriving quickly matters to you",
	commute.CriterionCost:        "When keeping costs down matters to you",
	commute.CriterionComfort:     "When you want a calmer, lower-stress trip",
	commute.CriterionReliability: "When you need a predictable arrival time",
}

var weakLead = map[commute.Criterion]string{
	commute.CriterionTime:        "When travel time matters",
	commute.CriterionCost:        "When budget is tight",
	commute.CriterionComfort:     "When you want a relaxing commute",
	commute.CriterionReliability: "When punctuality is critical",
}

// FormatValue renders a raw criterion value in its native unit.
func FormatValue(c commute.Criterion, v float64) string {
	switch c {
	case commute.CriterionTime:
		return num(v) + " min"
	case commute.CriterionCost:
		return fmt.Sprintf("%.2f", v)
	default:
		return num(v) + "/10"
	}
}

func num(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func label(c commute.Criterion) string {
	switch c {
	case commute.CriterionTime:
		return "Travel time"
	case commute.CriterionCost:
		return "Cost"
	case commute.CriterionComfort:
		return "Stress level"
	case commute.CriterionReliability:
		return "Reliability"
	}
	return string(c)
}

// Median returns the median of vs. For an even count the two middle values
// are averaged. vs is not modified.
func Median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// favourable reports whether a is more favourable than b on criterion c.
func favourable(c commute.Criterion, a, b float64) bool {
	if math.Abs(a-b) <= valueEpsilon {
		return false
	}
	if c.LowerIsBetter() {
		return a < b
	}
	return a > b
}

// summarize builds the batch-relative trade-off summary for every ranked analysis.
func summarize(analyses []commute.RouteAnalysis) []commute.TradeoffSummary {
	medians := commute.Scores{}
	for _, c := range commute.Criteria {
		vs := make([]float64, len(analyses))
		for i, a := range analyses {
			vs[i] = a.Raw.Of(c)
		}
		medians.Set(c, Median(vs))
	}

	out := make([]commute.TradeoffSummary, len(analyses))
	for i, a := range analyses {
		out[i] = summarizeOne(a, analyses, medians)
	}
	return out
}

func summarizeOne(a commute.RouteAnalysis, batch []commute.RouteAnalysis, medians commute.Scores) commute.TradeoffSummary {
	s := commute.TradeoffSummary{
		Strengths:        []string{},
		Weaknesses:       []string{},
		WhenToChoose:     []string{},
		WhenNotToChoose:  []string{},
		ComparisonPoints: []commute.ComparisonPoint{},
		StrongCriteria:   []commute.Criterion{},
		WeakCriteria:     []commute.Criterion{},
	}

	for _, c := range byWeight(a.Weights) {
		v, m := a.Raw.Of(c), medians.Of(c)
		switch {
		case favourable(c, v, m):
			s.StrongCriteria = append(s.StrongCriteria, c)
			s.Strengths = append(s.Strengths, medianText(c, v, m))
		case favourable(c, m, v):
			s.WeakCriteria = append(s.WeakCriteria, c)
			s.Weaknesses = append(s.Weaknesses, medianText(c, v, m))
		}
	}

	for _, c := range s.StrongCriteria {
		s.WhenToChoose = append(s.WhenToChoose, strongClause[c])
	}
	for _, m := range modeOrder {
		if a.Route.UsesMode(m) {
			s.WhenToChoose = append(s.WhenToChoose, modeGuidance[m])
		}
	}

	if len(batch) > 1 {
		weak := s.WeakCriteria
		if len(weak) == 0 {
			weak = outperformed(a, batch)
		}
		for _, c := range weak {
			if clause, ok := weakClause(a, batch, c); ok {
				s.WhenNotToChoose = append(s.WhenNotToChoose, clause)
			}
		}
		s.ComparisonPoints = comparisonPoints(a, batch)
	}
	for _, m := range modeOrder {
		if a.Route.UsesMode(m) {
			s.WhenNotToChoose = append(s.WhenNotToChoose, modeCaveats[m])
		}
	}
	if len(s.WhenNotToChoose) == 0 {
		s.WhenNotToChoose = append(s.WhenNotToChoose, "When conditions differ from the estimates these figures are based on")
	}

	return s
}

// byWeight orders criteria by descending weight, keeping presentation order on ties.
func byWeight(w commute.Weights) []commute.Criterion {
	out := append([]commute.Criterion(nil), commute.Criteria...)
	sort.SliceStable(out, func(i, j int) bool {
		return w.Of(out[i]) > w.Of(out[j])
	})
	return out
}

// outperformed lists the criteria on which at least one other route in the
// batch does better than a, ordered by weight.
func outperformed(a commute.RouteAnalysis, batch []commute.RouteAnalysis) []commute.Criterion {
	var out []commute.Criterion
	for _, c := range byWeight(a.Weights) {
		for _, other := range batch {
			if other.Route.ID != a.Route.ID && favourable(c, other.Raw.Of(c), a.Raw.Of(c)) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func medianText(c commute.Criterion, v, m float64) string {
	dir := "below"
	if v > m {
		dir = "above"
	}
	return fmt.Sprintf("%s of %s is %s the batch median of %s", label(c), FormatValue(c, v), dir, FormatValue(c, m))
}

// weakClause compares a against the route that does most favourably on c.
func weakClause(a commute.RouteAnalysis, batch []commute.RouteAnalysis, c commute.Criterion) (string, bool) {
	var ref *commute.RouteAnalysis
	for i := range batch {
		other := &batch[i]
		if other.Route.ID == a.Route.ID {
			continue
		}
		if ref == nil || favourable(c, other.Raw.Of(c), ref.Raw.Of(c)) {
			ref = other
		}
	}
	if ref == nil || !favourable(c, ref.Raw.Of(c), a.Raw.Of(c)) {
		return "", false
	}

	diff := math.Abs(a.Raw.Of(c) - ref.Raw.Of(c))
	var detail string
	switch c {
	case commute.CriterionTime:
		detail = fmt.Sprintf("it takes %s longer than route %s", FormatValue(c, diff), ref.Route.ID)
	case commute.CriterionCost:
		detail = fmt.Sprintf("it costs %s more than route %s", FormatValue(c, diff), ref.Route.ID)
	case commute.CriterionComfort:
		detail = fmt.Sprintf("its stress level is %s points higher than route %s", num(diff), ref.Route.ID)
	case commute.CriterionReliability:
		detail = fmt.Sprintf("its reliability is %s points lower than route %s", num(diff), ref.Route.ID)
	}
	return weakLead[c] + ": " + detail, true
}

func comparisonPoints(a commute.RouteAnalysis, batch []commute.RouteAnalysis) []commute.ComparisonPoint {
	points := make([]commute.ComparisonPoint, 0, (len(batch)-1)*len(commute.Criteria))
	for _, other := range batch {
		if other.Route.ID == a.Route.ID {
			continue
		}
		for _, c := range commute.Criteria {
			v, o := a.Raw.Of(c), other.Raw.Of(c)
			points = append(points, commute.ComparisonPoint{
				Criterion:    c,
				OtherRouteID: other.Route.ID,
				Value:        v,
				OtherValue:   o,
				Text:         pointText(c, v, o, other.Route.ID),
			})
		}
	}
	return points
}

func pointText(c commute.Criterion, v, o float64, otherID string) string {
	diff := math.Abs(v - o)
	if diff <= valueEpsilon {
		return fmt.Sprintf("Same %s as route %s", lowerLabel(c), otherID)
	}
	var word string
	switch c {
	case commute.CriterionTime:
		word = pick(v < o, "shorter", "longer")
		return fmt.Sprintf("%s %s than route %s", FormatValue(c, diff), word, otherID)
	case commute.CriterionCost:
		word = pick(v < o, "cheaper", "more expensive")
		return fmt.Sprintf("%s %s than route %s", FormatValue(c, diff), word, otherID)
	case commute.CriterionComfort:
		word = pick(v < o, "lower", "higher")
		return fmt.Sprintf("Stress level %s points %s than route %s", num(diff), word, otherID)
	default:
		word = pick(v > o, "higher", "lower")
		return fmt.Sprintf("Reliability %s points %s than route %s", num(diff), word, otherID)
	}
}

func lowerLabel(c commute.Criterion) string {
	switch c {
	case commute.CriterionTime:
		return "travel time"
	case commute.CriterionComfort:
		return "stress level"
	}
	return string(c)
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
