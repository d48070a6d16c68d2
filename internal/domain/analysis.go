package domain

import (
	"github.com/shopspring/decimal"
)

// FlagStatus is the fixed status carried by every flagged pair
const FlagStatus = "contract signed during active sanction"

// FlaggedPair joins one contract with one sanction whose window it overlaps
type FlaggedPair struct {
	Contract ContractRecord `json:"contract"`
	Sanction SanctionRecord `json:"sanction"`
	Status   string         `json:"status"`
	Severity RiskLevel      `json:"severity"`
}

// NewFlaggedPair builds a pair with the fixed status and severity tags
func NewFlaggedPair(contract ContractRecord, sanction SanctionRecord) FlaggedPair {
	return FlaggedPair{
		Contract: contract,
		Sanction: sanction,
		Status:   FlagStatus,
		Severity: RiskLevelCritical,
	}
}

// Value is the contract value counted for this irregularity
func (p *FlaggedPair) Value() decimal.Decimal {
	return p.Contract.AmountOrZero()
}

// EntityRollup groups every flagged pair for one identifier
type EntityRollup struct {
	Identifier  Identifier      `json:"identifier"`
	DisplayName string          `json:"display_name"`
	Pairs       []FlaggedPair   `json:"pairs"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// FlagCount returns how many irregularities the entity accumulated
func (e *EntityRollup) FlagCount() int {
	return len(e.Pairs)
}

// AnalysisSummary is the result of cross-checking one batch of registries
type AnalysisSummary struct {
	SanctionsCount      int             `json:"sanctions_count"`
	ContractsCount      int             `json:"contracts_count"`
	FlaggedCount        int             `json:"flagged_count"`
	TotalContractsValue decimal.Decimal `json:"total_contracts_value"`
	TotalFlaggedValue   decimal.Decimal `json:"total_flagged_value"`
	PercentFlagged      decimal.Decimal `json:"percent_flagged"`
	Entities            []EntityRollup  `json:"entities"`
	Flagged             []FlaggedPair   `json:"flagged"`
}

// HasIrregularities returns true if at least one pair was flagged
func (s *AnalysisSummary) HasIrregularities() bool {
	return s.FlaggedCount > 0
}
