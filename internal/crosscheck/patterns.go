package crosscheck

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// Thresholds used by the pattern detector
type Thresholds struct {
	// HighValue is the per-entity flagged value above which high-value fires
	HighValue decimal.Decimal
	// SystemicRate is the percent flagged above which systemic-rate fires
	SystemicRate decimal.Decimal
}

// DefaultThresholds returns the standard limits: 1,000,000 and 5%
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValue:    decimal.NewFromInt(1_000_000),
		SystemicRate: decimal.NewFromInt(5),
	}
}

// DetectPatterns scans a summary with the default thresholds
func DetectPatterns(summary domain.AnalysisSummary) []domain.Pattern {
	return DefaultThresholds().Detect(summary)
}

// Detect emits every multiple-flags finding, then every high-value finding,
// both in rollup order, then at most one systemic-rate finding.
func (t Thresholds) Detect(summary domain.AnalysisSummary) []domain.Pattern {
	var patterns []domain.Pattern

	for _, e := range summary.Entities {
		if e.FlagCount() > 1 {
			patterns = append(patterns, domain.Pattern{
				Kind:        domain.PatternMultipleFlags,
				Severity:    domain.RiskLevelCritical,
				Description: fmt.Sprintf("%s signed %d contracts during an active sanction", e.DisplayName, e.FlagCount()),
				Identifier:  e.Identifier,
				EntityName:  e.DisplayName,
				Count:       e.FlagCount(),
				Value:       e.TotalValue,
				Percent:     decimal.Zero,
			})
		}
	}

	for _, e := range summary.Entities {
		if e.TotalValue.GreaterThan(t.HighValue) {
			patterns = append(patterns, domain.Pattern{
				Kind:        domain.PatternHighValue,
				Severity:    domain.RiskLevelCritical,
				Description: fmt.Sprintf("%s signed contracts worth %s during an active sanction", e.DisplayName, e.TotalValue.StringFixed(2)),
				Identifier:  e.Identifier,
				EntityName:  e.DisplayName,
				Count:       e.FlagCount(),
				Value:       e.TotalValue,
				Percent:     decimal.Zero,
			})
		}
	}

	if summary.PercentFlagged.GreaterThan(t.SystemicRate) {
		patterns = append(patterns, domain.Pattern{
			Kind:        domain.PatternSystemicRate,
			Severity:    domain.RiskLevelHigh,
			Description: fmt.Sprintf("%s%% of total contract value was signed during active sanctions", summary.PercentFlagged.StringFixed(2)),
			Count:       summary.FlaggedCount,
			Value:       summary.TotalFlaggedValue,
			Percent:     summary.PercentFlagged,
		})
	}

	return patterns
}
