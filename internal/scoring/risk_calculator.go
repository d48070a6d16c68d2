// Package scoring turns a bundle of per-source lookup results into a risk score.
// It never touches the network or the clock.
package scoring

import (
	"fmt"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// Severity groups sources by how much a hit weighs
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityAdvisory Severity = "ADVISORY"
)

// SourceWeight defines the points a source contributes when it reports hits
type SourceWeight struct {
	Source   domain.SourceName
	Label    string
	Severity Severity
	// Points are added when the source is ok with at least one hit
	Points int
	// BonusAbove adds BonusPoints when the hit count exceeds it; zero disables the bonus
	BonusAbove  int
	BonusPoints int
	// Noun is used to render the alert line for advisory sources
	Noun string
}

// informationalThreshold is the hit count above which contracts add a bonus
const informationalThreshold = 10

// Default source weights, in the order alerts are reported
var defaultWeights = []SourceWeight{
	{Source: domain.SourceNameCEIS, Label: "CEIS", Severity: SeverityHigh, Points: 50},
	{Source: domain.SourceNameCNEP, Label: "CNEP", Severity: SeverityHigh, Points: 50},
	{Source: domain.SourceNameCEPIM, Label: "CEPIM", Severity: SeverityMedium, Points: 40},
	{Source: domain.SourceNameContracts, Label: "contracts", Severity: SeverityAdvisory,
		BonusAbove: informationalThreshold, BonusPoints: 5, Noun: "federal contract(s)"},
	{Source: domain.SourceNameGrants, Label: "grants", Severity: SeverityAdvisory, Noun: "grant agreement(s)"},
}

// DefaultWeights returns a copy of the standard source weights
func DefaultWeights() []SourceWeight {
	out := make([]SourceWeight, len(defaultWeights))
	copy(out, defaultWeights)
	return out
}

// RiskCalculator scores result bundles with a fixed weight table
type RiskCalculator struct {
	weights []SourceWeight
}

// NewRiskCalculator creates a calculator. A nil table selects DefaultWeights.
func NewRiskCalculator(weights []SourceWeight) *RiskCalculator {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &RiskCalculator{weights: weights}
}

// Score computes the assessment for a bundle. Failed or absent sources add nothing.
func (c *RiskCalculator) Score(bundle domain.ResultBundle) domain.RiskAssessment {
	points := 0
	alerts := make([]string, 0)

	for _, w := range c.weights {
		ok, hits := bundle.Outcome(w.Source)
		if !ok || hits == 0 {
			continue
		}

		points += w.Points
		if w.BonusAbove > 0 && hits > w.BonusAbove {
			points += w.BonusPoints
		}

		if w.Severity == SeverityAdvisory {
			alerts = append(alerts, fmt.Sprintf("%d %s", hits, w.Noun))
		} else {
			alerts = append(alerts, fmt.Sprintf("Found in %s (%d record(s))", w.Label, hits))
		}
	}

	return domain.RiskAssessment{
		Score:            points,
		Level:            domain.CalculateRiskLevel(points),
		Alerts:           alerts,
		SourcesConsulted: len(bundle),
		SourcesWithData:  bundle.SourcesWithData(),
	}
}
