package crosscheck

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

func TestAggregate_SingleFlag(t *testing.T) {
	sanctions := []domain.SanctionRecord{sanction(orgA, day(2023, 1, 1), day(2025, 12, 31))}
	contracts := []domain.ContractRecord{
		contract(orgA, day(2023, 6, 15), 500000),
		contract(orgB, day(2023, 6, 15), 1500000),
	}

	flagged := Match(sanctions, contracts)
	summary := Aggregate(sanctions, contracts, flagged)

	assert.Equal(t, 1, summary.SanctionsCount)
	assert.Equal(t, 2, summary.ContractsCount)
	assert.Equal(t, 1, summary.FlaggedCount)
	assert.Equal(t, "2000000", summary.TotalContractsValue.String())
	assert.Equal(t, "500000", summary.TotalFlaggedValue.String())
	assert.True(t, summary.PercentFlagged.Equal(decimal.NewFromInt(25)))

	require.Len(t, summary.Entities, 1)
	assert.Equal(t, domain.Identifier(orgA), summary.Entities[0].Identifier)
	assert.Equal(t, "500000", summary.Entities[0].TotalValue.String())
	assert.True(t, summary.HasIrregularities())
}

func TestAggregate_ValueCountedPerPair(t *testing.T) {
	sanctions := []domain.SanctionRecord{
		sanction(orgA, day(2022, 1, 1), nil),
		sanction(orgA, day(2023, 1, 1), day(2024, 1, 1)),
	}
	contracts := []domain.ContractRecord{contract(orgA, day(2023, 6, 15), 300)}

	summary := Aggregate(sanctions, contracts, Match(sanctions, contracts))

	assert.Equal(t, 2, summary.FlaggedCount)
	assert.Equal(t, "600", summary.TotalFlaggedValue.String())
	require.Len(t, summary.Entities, 1)
	assert.Equal(t, 2, summary.Entities[0].FlagCount())
	assert.Equal(t, "600", summary.Entities[0].TotalValue.String())
}

func TestAggregate_ZeroTotal(t *testing.T) {
	sanctions := []domain.SanctionRecord{sanction(orgA, day(2022, 1, 1), nil)}
	free := contract(orgA, day(2023, 1, 1), 0)
	unvalued := contract(orgA, day(2023, 2, 1), 0)
	unvalued.Value = nil
	contracts := []domain.ContractRecord{free, unvalued}

	summary := Aggregate(sanctions, contracts, Match(sanctions, contracts))

	assert.Equal(t, 2, summary.FlaggedCount)
	assert.True(t, summary.TotalContractsValue.IsZero())
	assert.True(t, summary.PercentFlagged.IsZero())
}

func TestAggregate_Empty(t *testing.T) {
	summary := Aggregate(nil, nil, nil)
	assert.Zero(t, summary.FlaggedCount)
	assert.True(t, summary.PercentFlagged.IsZero())
	assert.Empty(t, summary.Entities)
	assert.False(t, summary.HasIrregularities())
}

func TestAggregate_PercentWithinBounds(t *testing.T) {
	for seed := int64(10); seed < 15; seed++ {
		_, contracts := randomDataset(seed, 0, 300)

		// one closed sanction per identifier keeps every contract in at most one pair
		var sanctions []domain.SanctionRecord
		for _, id := range []string{orgA, orgB, cpfC} {
			sanctions = append(sanctions, sanction(id, day(2019, 1, 1), day(2022, 1, 1)))
		}

		summary := Aggregate(sanctions, contracts, Match(sanctions, contracts))
		assert.False(t, summary.PercentFlagged.IsNegative())
		assert.True(t, summary.PercentFlagged.LessThanOrEqual(decimal.NewFromInt(100)))
	}
}

func TestRollup_FirstSeenOrderAndName(t *testing.T) {
	a1 := domain.NewFlaggedPair(contract(orgA, day(2023, 1, 1), 10), sanction(orgA, day(2020, 1, 1), nil))
	b1 := domain.NewFlaggedPair(contract(orgB, day(2023, 2, 1), 20), sanction(orgB, day(2020, 1, 1), nil))
	a2 := domain.NewFlaggedPair(contract(orgA, day(2023, 3, 1), 30), sanction(orgA, day(2020, 1, 1), nil))
	a2.Contract.PartyName = "Renamed Supplier"

	rollups := Rollup([]domain.FlaggedPair{a1, b1, a2})

	require.Len(t, rollups, 2)
	assert.Equal(t, domain.Identifier(orgA), rollups[0].Identifier)
	assert.Equal(t, "Supplier "+orgA, rollups[0].DisplayName)
	assert.Equal(t, "40", rollups[0].TotalValue.String())
	assert.Len(t, rollups[0].Pairs, 2)
	assert.Equal(t, domain.Identifier(orgB), rollups[1].Identifier)
	assert.Equal(t, "20", rollups[1].TotalValue.String())
}
