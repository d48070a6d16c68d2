package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType represents the type of integrity alert
type AlertType string

const (
	AlertTypeContractDuringSanction AlertType = "CONTRACT_DURING_SANCTION"
	AlertTypeSystemic               AlertType = "SYSTEMIC_IRREGULARITY"
)

// IntegrityAlert is a persisted, reviewable record of a detected pattern
type IntegrityAlert struct {
	ID    uuid.UUID `json:"id" db:"id"`
	RunID uuid.UUID `json:"run_id" db:"run_id"`

	// Subject (empty for summary-wide alerts)
	Identifier Identifier `json:"identifier,omitempty" db:"identifier"`
	Name       string     `json:"name,omitempty" db:"name"`

	// Classification
	AlertType   AlertType   `json:"alert_type" db:"alert_type"`
	PatternKind PatternKind `json:"pattern_kind" db:"pattern_kind"`
	Priority    RiskLevel   `json:"priority" db:"priority"`

	// Details
	Description string  `json:"description" db:"description"`
	Pattern     Pattern `json:"pattern" db:"pattern"`

	// Review
	Reviewed   bool       `json:"reviewed" db:"reviewed"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`

	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
}

// NewAlertFromPattern wraps a pattern into an alert owned by an analysis run
func NewAlertFromPattern(runID uuid.UUID, p Pattern, detectedAt time.Time) IntegrityAlert {
	alertType := AlertTypeContractDuringSanction
	if !p.IsEntityPattern() {
		alertType = AlertTypeSystemic
	}
	return IntegrityAlert{
		ID:          uuid.New(),
		RunID:       runID,
		Identifier:  p.Identifier,
		Name:        p.EntityName,
		AlertType:   alertType,
		PatternKind: p.Kind,
		Priority:    p.Severity,
		Description: p.Description,
		Pattern:     p,
		DetectedAt:  detectedAt,
	}
}

// AlertSummary is a lean DTO for list views
type AlertSummary struct {
	ID          uuid.UUID   `json:"id"`
	Identifier  Identifier  `json:"identifier,omitempty"`
	Name        string      `json:"name,omitempty"`
	PatternKind PatternKind `json:"pattern_kind"`
	Priority    RiskLevel   `json:"priority"`
	Description string      `json:"description"`
	Reviewed    bool        `json:"reviewed"`
	DetectedAt  time.Time   `json:"detected_at"`
}

// ToSummary converts IntegrityAlert to AlertSummary
func (a *IntegrityAlert) ToSummary() *AlertSummary {
	return &AlertSummary{
		ID:          a.ID,
		Identifier:  a.Identifier,
		Name:        a.Name,
		PatternKind: a.PatternKind,
		Priority:    a.Priority,
		Description: a.Description,
		Reviewed:    a.Reviewed,
		DetectedAt:  a.DetectedAt,
	}
}
