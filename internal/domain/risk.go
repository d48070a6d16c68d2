package domain

// RiskLevel represents the risk severity
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Score thresholds for each tier (inclusive lower bounds)
const (
	CriticalScoreThreshold = 50
	HighScoreThreshold     = 30
	MediumScoreThreshold   = 10
)

// CalculateRiskLevel returns the risk level based on score
func CalculateRiskLevel(score int) RiskLevel {
	switch {
	case score >= CriticalScoreThreshold:
		return RiskLevelCritical
	case score >= HighScoreThreshold:
		return RiskLevelHigh
	case score >= MediumScoreThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Rank orders levels so callers can compare them
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelCritical:
		return 3
	case RiskLevelHigh:
		return 2
	case RiskLevelMedium:
		return 1
	default:
		return 0
	}
}

// PatternKind names a suspicious pattern found in an analysis
type PatternKind string

const (
	PatternMultipleFlags PatternKind = "multiple-flags"
	PatternHighValue     PatternKind = "high-value"
	PatternSystemicRate  PatternKind = "systemic-rate"
)
