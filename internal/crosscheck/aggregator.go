package crosscheck

import (
	"github.com/shopspring/decimal"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregate rolls the flagged pairs up into totals and per-entity summaries.
//
// A contract flagged against N sanctions contributes its value N times to the
// flagged total: every pair is a separate irregularity.
func Aggregate(sanctions []domain.SanctionRecord, contracts []domain.ContractRecord, flagged []domain.FlaggedPair) domain.AnalysisSummary {
	total := decimal.Zero
	for i := range contracts {
		total = total.Add(contracts[i].AmountOrZero())
	}

	flaggedTotal := decimal.Zero
	for i := range flagged {
		flaggedTotal = flaggedTotal.Add(flagged[i].Value())
	}

	return domain.AnalysisSummary{
		SanctionsCount:      len(sanctions),
		ContractsCount:      len(contracts),
		FlaggedCount:        len(flagged),
		TotalContractsValue: total,
		TotalFlaggedValue:   flaggedTotal,
		PercentFlagged:      percentOf(flaggedTotal, total),
		Entities:            Rollup(flagged),
		Flagged:             flagged,
	}
}

// Rollup groups pairs by identifier in first-seen order. The display name is
// the party name of the first pair seen for the identifier.
func Rollup(flagged []domain.FlaggedPair) []domain.EntityRollup {
	var rollups []domain.EntityRollup
	position := make(map[domain.Identifier]int)

	for _, p := range flagged {
		id := p.Contract.Identifier
		i, seen := position[id]
		if !seen {
			i = len(rollups)
			position[id] = i
			rollups = append(rollups, domain.EntityRollup{
				Identifier:  id,
				DisplayName: p.Contract.PartyName,
				TotalValue:  decimal.Zero,
			})
		}
		rollups[i].Pairs = append(rollups[i].Pairs, p)
		rollups[i].TotalValue = rollups[i].TotalValue.Add(p.Value())
	}
	return rollups
}

// percentOf returns part/whole*100, or zero when whole is zero
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
