package explain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// ErrUnjustifiedClaim is returned by LanguageReport.Err for text that makes a
// prescriptive or superlative claim without stating the weights behind it.
var ErrUnjustifiedClaim = errors.New("unjustified claim")

// TermKind classifies a flagged term.
type TermKind string

// Term kinds.
const (
	KindPrescriptive TermKind = "prescriptive"
	KindSuperlative  TermKind = "superlative"
)

// Violation is one unjustified term found in a message.
type Violation struct {
	Term string   `json:"term"`
	Kind TermKind `json:"kind"`
}

// LanguageReport is the result of checking one message.
type LanguageReport struct {
	Compliant  bool        `json:"compliant"`
	Justified  bool        `json:"justified"`
	Violations []Violation `json:"violations,omitempty"`
	// Warnings lists overconfident wording. Warnings never fail a message.
	Warnings []string `json:"warnings,omitempty"`
}

// Err returns nil for compliant text, otherwise an error wrapping
// ErrUnjustifiedClaim that names the offending terms.
func (r LanguageReport) Err() error {
	if r.Compliant {
		return nil
	}
	terms := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		terms[i] = v.Term
	}
	return fmt.Errorf("%w: %s", ErrUnjustifiedClaim, strings.Join(terms, ", "))
}

var (
	prescriptivePattern = wordPattern("best", "optimal", "perfect", "ideal", "recommended", "should", "must")
	superlativePattern  = wordPattern(
		"fastest", "slowest", "cheapest", "most expensive",
		"most reliable", "least reliable", "most stressful", "least stressful",
		"highest", "lowest", "maximum", "minimum",
		"always", "never", "guaranteed", "certain",
	)
	warningPattern = wordPattern(
		"obviously", "clearly", "definitely", "absolutely",
		"impossible", "terrible", "awful", "horrible",
	)

	// weightStatementPattern matches the wording produced by WeightStatement.
	weightStatementPattern = regexp.MustCompile(
		`(?i)\d+(?:\.\d+)?% time, \d+(?:\.\d+)?% cost, \d+(?:\.\d+)?% comfort,? (?:and )?\d+(?:\.\d+)?% reliability`,
	)
)

func wordPattern(terms ...string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CheckLanguage scans a single message for prescriptive and superlative
// terms. A message is compliant when it has none, or when it also carries a
// weight statement justifying them.
func CheckLanguage(text string) LanguageReport {
	report := LanguageReport{Justified: weightStatementPattern.MatchString(text)}

	var found []Violation
	for _, m := range prescriptivePattern.FindAllString(text, -1) {
		found = append(found, Violation{Term: normalizeTerm(m), Kind: KindPrescriptive})
	}
	for _, m := range superlativePattern.FindAllString(text, -1) {
		found = append(found, Violation{Term: normalizeTerm(m), Kind: KindSuperlative})
	}
	for _, m := range warningPattern.FindAllString(text, -1) {
		report.Warnings = append(report.Warnings, normalizeTerm(m))
	}

	if !report.Justified {
		report.Violations = found
	}
	report.Compliant = len(report.Violations) == 0
	return report
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// WeightStatement renders weights in the form CheckLanguage accepts as
// justification, e.g. "given your priorities of 40% time, 20% cost, 20%
// comfort, 20% reliability".
func WeightStatement(w commute.Weights) string {
	return fmt.Sprintf("given your priorities of %s%% time, %s%% cost, %s%% comfort, %s%% reliability",
		percent(w.Time), percent(w.Cost), percent(w.Comfort), percent(w.Reliability))
}

func percent(v float64) string {
	if r := math.Round(v); math.Abs(v-r) < 0.05 {
		return fmt.Sprintf("%.0f", r)
	}
	return fmt.Sprintf("%.1f", v)
}
