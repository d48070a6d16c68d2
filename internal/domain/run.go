package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisRun is one complete cross-check over a pair of input files
type AnalysisRun struct {
	ID            uuid.UUID        `json:"id"`
	SanctionsPath string           `json:"sanctions_path"`
	ContractsPath string           `json:"contracts_path"`
	Summary       AnalysisSummary  `json:"summary"`
	Patterns      []Pattern        `json:"patterns"`
	Alerts        []IntegrityAlert `json:"alerts"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   time.Time        `json:"completed_at"`
}

// Duration returns how long the run took
func (r *AnalysisRun) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
