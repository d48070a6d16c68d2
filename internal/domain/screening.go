package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceName identifies one lookup source in a result bundle
type SourceName string

const (
	SourceNameCEIS           SourceName = "ceis"
	SourceNameCNEP           SourceName = "cnep"
	SourceNameCEPIM          SourceName = "cepim"
	SourceNameContracts      SourceName = "contracts"
	SourceNameGrants         SourceName = "grants"
	SourceNameReceitaFederal SourceName = "receita_federal"
	SourceNamePNCP           SourceName = "pncp"
	SourceNameLocalCEIS      SourceName = "ceis_local"
)

// LookupErrorKind classifies why a source produced no data
type LookupErrorKind string

const (
	LookupErrorMissingAPIKey   LookupErrorKind = "missing_api_key"
	LookupErrorInvalidDocument LookupErrorKind = "invalid_document"
	LookupErrorHTTP            LookupErrorKind = "http_error"
	LookupErrorConnection      LookupErrorKind = "connection_error"
	LookupErrorBadData         LookupErrorKind = "bad_data"
	LookupErrorUnavailable     LookupErrorKind = "unavailable"
	LookupErrorTimeout         LookupErrorKind = "timeout"
	LookupErrorInternal        LookupErrorKind = "internal"
)

// SourceError is the failure variant of a SourceResult
type SourceError struct {
	Kind    LookupErrorKind `json:"kind"`
	Message string          `json:"message"`
}

// SourceResult is either Ok{Data, Count} or Err{Kind, Message}.
// Build it with OkResult or ErrResult.
type SourceResult struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Count int             `json:"count"`
	Err   *SourceError    `json:"error,omitempty"`
}

// OkResult builds the success variant
func OkResult(data json.RawMessage, count int) SourceResult {
	if count < 0 {
		count = 0
	}
	return SourceResult{OK: true, Data: data, Count: count}
}

// ErrResult builds the failure variant
func ErrResult(kind LookupErrorKind, message string) SourceResult {
	return SourceResult{Err: &SourceError{Kind: kind, Message: message}}
}

// Hits returns the hit count, zero for failed lookups
func (r SourceResult) Hits() int {
	if !r.OK {
		return 0
	}
	return r.Count
}

// ResultBundle holds one result per consulted source
type ResultBundle map[SourceName]SourceResult

// Outcome returns the (ok, hit_count) pair scoring works on.
// Sources absent from the bundle report ok=false.
func (b ResultBundle) Outcome(name SourceName) (bool, int) {
	r, found := b[name]
	if !found || !r.OK {
		return false, 0
	}
	return true, r.Count
}

// SourcesWithData counts sources that answered with at least one hit
func (b ResultBundle) SourcesWithData() int {
	n := 0
	for _, r := range b {
		if r.Hits() > 0 {
			n++
		}
	}
	return n
}

// RiskAssessment is the scored view of a result bundle
type RiskAssessment struct {
	Score            int       `json:"score"`
	Level            RiskLevel `json:"level"`
	Alerts           []string  `json:"alerts"`
	SourcesConsulted int       `json:"sources_consulted"`
	SourcesWithData  int       `json:"sources_with_data"`
}

// ScreeningReport is the result of screening one document across every source
type ScreeningReport struct {
	ID         uuid.UUID      `json:"id"`
	Identifier Identifier     `json:"identifier"`
	Kind       IdentifierKind `json:"kind"`
	Formatted  string         `json:"formatted"`
	Sources    ResultBundle   `json:"sources"`
	Assessment RiskAssessment `json:"assessment"`

	// Performance metrics
	DurationMs int64 `json:"duration_ms"`

	CheckedAt time.Time `json:"checked_at"`
}

// IsHighRisk returns true if the report warrants manual review
func (r *ScreeningReport) IsHighRisk() bool {
	return r.Assessment.Level.Rank() >= RiskLevelHigh.Rank()
}
