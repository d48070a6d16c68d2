package domain

import (
	"github.com/shopspring/decimal"
)

// Pattern is one suspicious finding derived from an AnalysisSummary.
// Entity fields are empty for summary-wide patterns such as systemic-rate.
type Pattern struct {
	Kind        PatternKind     `json:"kind"`
	Severity    RiskLevel       `json:"severity"`
	Description string          `json:"description"`
	Identifier  Identifier      `json:"identifier,omitempty"`
	EntityName  string          `json:"entity_name,omitempty"`
	Count       int             `json:"count,omitempty"`
	Value       decimal.Decimal `json:"value"`
	Percent     decimal.Decimal `json:"percent"`
}

// IsEntityPattern returns true if the pattern refers to a single entity
func (p *Pattern) IsEntityPattern() bool {
	return p.Identifier != ""
}
