package crosscheck

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

func kinds(patterns []domain.Pattern) []domain.PatternKind {
	out := make([]domain.PatternKind, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.Kind)
	}
	return out
}

func TestDetectPatterns_MultipleFlagsOncePerEntity(t *testing.T) {
	sanctions := []domain.SanctionRecord{sanction(orgA, day(2022, 1, 1), nil)}
	contracts := []domain.ContractRecord{
		contract(orgA, day(2023, 1, 1), 100),
		contract(orgA, day(2023, 2, 1), 100),
		contract(orgB, day(2023, 2, 1), 1_000_000),
	}

	patterns := DetectPatterns(Aggregate(sanctions, contracts, Match(sanctions, contracts)))

	require.Len(t, patterns, 1)
	assert.Equal(t, domain.PatternMultipleFlags, patterns[0].Kind)
	assert.Equal(t, domain.RiskLevelCritical, patterns[0].Severity)
	assert.Equal(t, domain.Identifier(orgA), patterns[0].Identifier)
	assert.Equal(t, 2, patterns[0].Count)
}

func TestDetectPatterns_HighValueIsStrict(t *testing.T) {
	sanctions := []domain.SanctionRecord{
		sanction(orgA, day(2022, 1, 1), nil),
		sanction(orgB, day(2022, 1, 1), nil),
	}
	contracts := []domain.ContractRecord{
		contract(orgA, day(2023, 1, 1), 1_000_000),
		contract(orgB, day(2023, 1, 1), 1_000_000.01),
	}

	patterns := DefaultThresholds().Detect(Aggregate(sanctions, contracts, Match(sanctions, contracts)))

	var highValue []domain.Pattern
	for _, p := range patterns {
		if p.Kind == domain.PatternHighValue {
			highValue = append(highValue, p)
		}
	}
	require.Len(t, highValue, 1)
	assert.Equal(t, domain.Identifier(orgB), highValue[0].Identifier)
	assert.Contains(t, highValue[0].Description, "1000000.01")
}

func TestDetectPatterns_EmissionOrder(t *testing.T) {
	sanctions := []domain.SanctionRecord{
		sanction(orgA, day(2022, 1, 1), nil),
		sanction(orgB, day(2022, 1, 1), nil),
	}
	contracts := []domain.ContractRecord{
		contract(orgA, day(2023, 1, 1), 600_000),
		contract(orgA, day(2023, 2, 1), 600_000),
		contract(orgB, day(2023, 3, 1), 2_000_000),
		contract(orgB, day(2023, 4, 1), 10),
	}

	summary := Aggregate(sanctions, contracts, Match(sanctions, contracts))
	patterns := DetectPatterns(summary)

	assert.Equal(t, []domain.PatternKind{
		domain.PatternMultipleFlags,
		domain.PatternMultipleFlags,
		domain.PatternHighValue,
		domain.PatternHighValue,
		domain.PatternSystemicRate,
	}, kinds(patterns))
	assert.Equal(t, domain.Identifier(orgA), patterns[0].Identifier)
	assert.Equal(t, domain.Identifier(orgB), patterns[1].Identifier)
	assert.Equal(t, domain.Identifier(orgA), patterns[2].Identifier)
	assert.Equal(t, domain.Identifier(orgB), patterns[3].Identifier)

	systemic := patterns[4]
	assert.Equal(t, domain.RiskLevelHigh, systemic.Severity)
	assert.False(t, systemic.IsEntityPattern())
	assert.True(t, systemic.Percent.Equal(decimal.NewFromInt(100)))
}

func TestDetectPatterns_SystemicRateThreshold(t *testing.T) {
	summary := domain.AnalysisSummary{PercentFlagged: decimal.NewFromInt(5)}
	assert.Empty(t, DetectPatterns(summary), "exactly 5% does not fire")

	summary.PercentFlagged = decimal.RequireFromString("5.01")
	patterns := DetectPatterns(summary)
	require.Len(t, patterns, 1)
	assert.Equal(t, domain.PatternSystemicRate, patterns[0].Kind)
	assert.Contains(t, patterns[0].Description, "5.01%")
}

func TestDetectPatterns_EntityCanTriggerBoth(t *testing.T) {
	sanctions := []domain.SanctionRecord{sanction(orgA, day(2022, 1, 1), nil)}
	contracts := []domain.ContractRecord{
		contract(orgA, day(2023, 1, 1), 800_000),
		contract(orgA, day(2023, 2, 1), 800_000),
		contract(orgB, day(2023, 2, 1), 100_000_000),
	}

	patterns := DetectPatterns(Aggregate(sanctions, contracts, Match(sanctions, contracts)))

	assert.Equal(t, []domain.PatternKind{domain.PatternMultipleFlags, domain.PatternHighValue}, kinds(patterns))
	assert.Equal(t, patterns[0].Identifier, patterns[1].Identifier)
}
