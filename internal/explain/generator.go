// Package explain turns ranked route analyses into a recommendation bundle
// with plain-language reasoning. Every message the generator emits passes a
// language check: prescriptive or superlative wording is only kept when the
// message also states the user's weights.
package explain

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
)

// SingleRouteLimitation is set on bundles built from fewer than two routes.
const SingleRouteLimitation = "Only one route was available, so it could not be compared with alternatives and no confidence level can be given"

const fallbackWhenNot = "When conditions differ from the estimates these figures are based on"

// Context maps each condition type to the latest snapshot for the commute.
type Context map[conditions.Type]conditions.Snapshot

// RouteExplanation describes one ranked route.
type RouteExplanation struct {
	RouteID           string   `json:"routeId"`
	Rank              int      `json:"rank"`
	Score             float64  `json:"score"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	WhenToChoose      []string `json:"whenToChoose"`
	WhenNotToChoose   []string `json:"whenNotToChoose"`
	WhyNotRecommended []string `json:"whyNotRecommended,omitempty"`
}

// Bundle is the explained recommendation for one ranked batch.
type Bundle struct {
	RecommendedRouteID string   `json:"recommendedRouteId"`
	Reasoning          []string `json:"reasoning"`
	// Confidence is nil when fewer than two routes were ranked.
	Confidence     *float64            `json:"confidence"`
	Limitation     string              `json:"limitation,omitempty"`
	Routes         []RouteExplanation  `json:"routes"`
	ContextFactors []string            `json:"contextFactors"`
	Uncertainty    []string            `json:"uncertainty"`
	Comparison     *ranking.Comparison `json:"comparison"`
	// Omitted counts generated messages dropped by the language check.
	Omitted int `json:"omitted"`
}

// Messages returns every text message in the bundle.
func (b *Bundle) Messages() []string {
	var out []string
	out = append(out, b.Reasoning...)
	if b.Limitation != "" {
		out = append(out, b.Limitation)
	}
	for _, r := range b.Routes {
		out = append(out, r.Strengths...)
		out = append(out, r.Weaknesses...)
		out = append(out, r.WhenToChoose...)
		out = append(out, r.WhenNotToChoose...)
		out = append(out, r.WhyNotRecommended...)
	}
	out = append(out, b.ContextFactors...)
	out = append(out, b.Uncertainty...)
	return out
}

// GeneratorConfig holds configuration for the explanation generator.
type GeneratorConfig struct {
	Logger zerolog.Logger
}

// Generator builds recommendation bundles. It holds no per-call state and is
// safe for concurrent use.
type Generator struct {
	logger zerolog.Logger
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{logger: cfg.Logger}
}

// Explain builds the recommendation bundle for a batch ranked by the engine.
// The weights of the top analysis are used for every weight statement.
// conditionContext may be nil.
func (g *Generator) Explain(ranked []commute.RouteAnalysis, conditionContext Context) (*Bundle, error) {
	if len(ranked) == 0 {
		return nil, commute.NewValidationError("routes", "must contain at least one ranked route")
	}
	for i, a := range ranked {
		if a.Rank != i+1 {
			return nil, commute.NewValidationError(fmt.Sprintf("routes[%d].rank", i), "expected rank %d, got %d", i+1, a.Rank)
		}
	}

	cmp, err := ranking.Compare(ranked, "")
	if err != nil {
		return nil, err
	}

	top := ranked[0]
	w := &writer{logger: g.logger, routeID: top.Route.ID}
	stmt := WeightStatement(top.Weights)
	env := readContext(conditionContext)

	b := &Bundle{
		RecommendedRouteID: top.Route.ID,
		Comparison:         cmp,
		Routes:             make([]RouteExplanation, 0, len(ranked)),
	}

	b.Reasoning = w.keep("reasoning", reasoning(top, ranked[1:], stmt, env))

	if len(ranked) < 2 {
		b.Limitation = SingleRouteLimitation
	} else {
		c := confidence(top.Score - ranked[1].Score)
		b.Confidence = &c
	}

	for _, a := range ranked {
		w.routeID = a.Route.ID
		re := RouteExplanation{
			RouteID:      a.Route.ID,
			Rank:         a.Rank,
			Score:        a.Score,
			Strengths:    w.keep("strengths", a.Tradeoffs.Strengths),
			Weaknesses:   w.keep("weaknesses", a.Tradeoffs.Weaknesses),
			WhenToChoose: w.keep("when_to_choose", a.Tradeoffs.WhenToChoose),
		}

		whenNot := append(append([]string(nil), a.Tradeoffs.WhenNotToChoose...), env.caveats(a.Route)...)
		re.WhenNotToChoose = w.keep("when_not_to_choose", whenNot)
		if len(re.WhenNotToChoose) == 0 {
			re.WhenNotToChoose = []string{fallbackWhenNot}
		}

		if a.Rank > 1 {
			re.WhyNotRecommended = w.keep("why_not", whyNot(a, top, stmt))
		}
		b.Routes = append(b.Routes, re)
	}

	w.routeID = top.Route.ID
	b.ContextFactors = w.keep("context", env.factors())
	b.Uncertainty = w.keep("uncertainty", env.uncertainty())
	b.Omitted = w.omitted

	return b, nil
}

// writer filters messages through CheckLanguage, dropping violations.
type writer struct {
	logger  zerolog.Logger
	routeID string
	omitted int
}

func (w *writer) keep(section string, messages []string) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		report := CheckLanguage(m)
		if !report.Compliant {
			w.omitted++
			w.logger.Warn().
				Err(report.Err()).
				Str("route_id", w.routeID).
				Str("section", section).
				Msg("dropped unjustified claim")
			continue
		}
		if len(report.Warnings) > 0 {
			w.logger.Debug().
				Strs("terms", report.Warnings).
				Str("section", section).
				Msg("overconfident wording in explanation")
		}
		out = append(out, m)
	}
	return out
}

// confidence maps the score margin between the top two routes to a level.
func confidence(margin float64) float64 {
	switch {
	case margin > 0.3:
		return 0.9
	case margin > 0.15:
		return 0.7
	case margin > 0.05:
		return 0.5
	default:
		return 0.3
	}
}

func reasoning(top commute.RouteAnalysis, rest []commute.RouteAnalysis, stmt string, env environment) []string {
	r := top.Route
	out := []string{
		fmt.Sprintf("Route %s is recommended with a score of %.2f %s", r.ID, top.Score, stmt),
	}

	switch {
	case len(rest) == 0:
	case top.Score > 0.8:
		out = append(out, "This route scores highly across your priority criteria")
	case top.Score > 0.6:
		out = append(out, "This route provides a good balance for your preferences")
	default:
		out = append(out, "This route is the best available option "+stmt)
	}

	if r.EstimatedMinutes <= 30 {
		out = append(out, fmt.Sprintf("Quick %d-minute journey", r.EstimatedMinutes))
	}
	if r.EstimatedCost <= 3 {
		out = append(out, "Affordable at "+ranking.FormatValue(commute.CriterionCost, r.EstimatedCost))
	}
	if r.StressLevel <= 4 {
		out = append(out, "Low-stress travel experience")
	}
	if r.ReliabilityScore >= 8 {
		out = append(out, "Highly reliable timing")
	}

	if env.badWeather() && (r.UsesMode(commute.ModePublicTransit) || r.UsesMode(commute.ModeDriving)) {
		out = append(out, fmt.Sprintf("Sheltered travel suits the current weather (%s)", env.weather))
	}
	if env.heavyTraffic() && !r.UsesMode(commute.ModeDriving) && !r.UsesMode(commute.ModeRideshare) {
		out = append(out, fmt.Sprintf("Stays off the roads while traffic is %s", env.congestion))
	}

	if len(rest) > 0 {
		next := rest[0]
		if d := next.Route.EstimatedMinutes - r.EstimatedMinutes; d > 0 {
			out = append(out, fmt.Sprintf("Saves %d minutes compared to route %s", d, next.Route.ID))
		}
		if d := next.Route.EstimatedCost - r.EstimatedCost; d > 0.005 {
			out = append(out, fmt.Sprintf("Saves %s compared to route %s", ranking.FormatValue(commute.CriterionCost, d), next.Route.ID))
		}
	}
	return out
}

// whyNot explains why a lower ranked route lost to the recommendation.
func whyNot(a, top commute.RouteAnalysis, stmt string) []string {
	var out []string
	r, t := a.Route, top.Route
	if d := r.EstimatedMinutes - t.EstimatedMinutes; d > 10 {
		out = append(out, fmt.Sprintf("Takes %d minutes longer than route %s", d, t.ID))
	}
	if d := r.EstimatedCost - t.EstimatedCost; d > 2 {
		out = append(out, fmt.Sprintf("Costs %s more than route %s", ranking.FormatValue(commute.CriterionCost, d), t.ID))
	}
	if r.StressLevel-t.StressLevel > 2 {
		out = append(out, fmt.Sprintf("Noticeably more stressful than route %s", t.ID))
	}
	if t.ReliabilityScore-r.ReliabilityScore > 2 {
		out = append(out, fmt.Sprintf("Less reliable timing than route %s", t.ID))
	}
	if len(out) == 0 {
		gap := math.Max(top.Score-a.Score, 0)
		out = append(out, fmt.Sprintf("Scores %.2f lower than route %s %s", gap, t.ID, stmt))
	}
	return out
}

var (
	badWeather       = map[string]bool{"rain": true, "heavy_rain": true, "snow": true, "heavy_snow": true, "storm": true, "ice": true}
	heavyCongestion  = map[string]bool{"heavy": true, "severe": true}
	scarceParking    = map[string]bool{"limited": true, "scarce": true}
	normalTransit    = map[string]bool{"": true, "normal": true}
	stableConditions = map[string]bool{"": true, "clear": true}
)

// environment is the part of the condition context the generator reads.
type environment struct {
	weather    string
	congestion string
	transit    string
	parking    string
	stale      []conditions.Type
}

func readContext(ctx Context) environment {
	var env environment
	for _, ct := range conditions.Types {
		snap, ok := ctx[ct]
		if !ok {
			continue
		}
		switch ct {
		case conditions.TypeWeather:
			env.weather = strings.ToLower(snap.Labels["condition"])
		case conditions.TypeTraffic:
			env.congestion = strings.ToLower(snap.Labels["congestion_level"])
		case conditions.TypeTransit:
			env.transit = strings.ToLower(snap.Labels["service_status"])
		case conditions.TypeParking:
			env.parking = strings.ToLower(snap.Labels["availability"])
		}
		if snap.Stale {
			env.stale = append(env.stale, ct)
		}
	}
	return env
}

func (e environment) badWeather() bool   { return badWeather[e.weather] }
func (e environment) heavyTraffic() bool { return heavyCongestion[e.congestion] }
func (e environment) disrupted() bool    { return !normalTransit[e.transit] }
func (e environment) lowParking() bool   { return scarceParking[e.parking] }

// caveats lists current conditions that count against route r.
func (e environment) caveats(r commute.Route) []string {
	var out []string
	if e.disrupted() && r.UsesMode(commute.ModePublicTransit) {
		out = append(out, fmt.Sprintf("While transit service is reported as %s", e.transit))
	}
	if e.badWeather() && (r.UsesMode(commute.ModeCycling) || r.UsesMode(commute.ModeWalking)) {
		out = append(out, fmt.Sprintf("While the weather is %s, since part of this trip is exposed", e.weather))
	}
	if e.heavyTraffic() && (r.UsesMode(commute.ModeDriving) || r.UsesMode(commute.ModeRideshare)) {
		out = append(out, fmt.Sprintf("While road traffic is %s", e.congestion))
	}
	if e.lowParking() && r.UsesMode(commute.ModeDriving) {
		out = append(out, fmt.Sprintf("While parking near the destination is %s", e.parking))
	}
	return out
}

func (e environment) factors() []string {
	out := []string{}
	if !stableConditions[e.weather] {
		out = append(out, "Current weather: "+e.weather)
	}
	if e.heavyTraffic() {
		out = append(out, fmt.Sprintf("Traffic conditions: %s congestion", e.congestion))
	}
	if e.disrupted() {
		out = append(out, "Transit status: "+e.transit)
	}
	if e.lowParking() {
		out = append(out, "Parking availability: "+e.parking)
	}
	return out
}

func (e environment) uncertainty() []string {
	out := []string{}
	for _, ct := range e.stale {
		out = append(out, fmt.Sprintf("%s data could not be refreshed and may not reflect current conditions", titleCase(string(ct))))
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
