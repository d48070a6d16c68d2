package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Registry source tags
const (
	SourceCEIS      = "CEIS"
	SourceCNEP      = "CNEP"
	SourceCEPIM     = "CEPIM"
	SourceContracts = "CONTRACTS"
)

// SanctionRecord is one row of a sanction registry after parsing.
// A nil SanctionStart or an identifier that is neither CPF nor CNPJ means the
// record can never match a contract.
// A nil SanctionEnd means the sanction is still in force.
type SanctionRecord struct {
	Source        string     `json:"source"`
	Identifier    Identifier `json:"identifier"`
	SubjectName   string     `json:"subject_name"`
	SanctionStart *time.Time `json:"sanction_start,omitempty"`
	SanctionEnd   *time.Time `json:"sanction_end,omitempty"`
	SanctionType  string     `json:"sanction_type"`
	IssuingBody   string     `json:"issuing_body"`
}

// ContractRecord is one public contract after parsing
type ContractRecord struct {
	Source          string           `json:"source"`
	Identifier      Identifier       `json:"identifier"`
	PartyName       string           `json:"party_name"`
	SignedDate      *time.Time       `json:"signed_date,omitempty"`
	Value           *decimal.Decimal `json:"value,omitempty"`
	ContractNumber  string           `json:"contract_number"`
	ContractingBody string           `json:"contracting_body"`
}

// Matchable reports whether the sanction has what the matcher needs: a CPF or
// CNPJ identifier and a start date
func (s *SanctionRecord) Matchable() bool {
	return s.Identifier.Kind() != KindInvalid && s.SanctionStart != nil
}

// ActiveOn reports whether day falls inside the sanction window, both ends inclusive
func (s *SanctionRecord) ActiveOn(day time.Time) bool {
	if s.SanctionStart == nil || day.Before(*s.SanctionStart) {
		return false
	}
	return s.SanctionEnd == nil || !day.After(*s.SanctionEnd)
}

// IsOpenEnded returns true if the sanction has no end date
func (s *SanctionRecord) IsOpenEnded() bool {
	return s.SanctionEnd == nil
}

// Matchable reports whether the contract can be windowed against sanctions
func (c *ContractRecord) Matchable() bool {
	return c.Identifier.Kind() != KindInvalid && c.SignedDate != nil
}

// AmountOrZero returns the contract value, treating a missing value as zero
func (c *ContractRecord) AmountOrZero() decimal.Decimal {
	if c.Value == nil {
		return decimal.Zero
	}
	return *c.Value
}

// Date truncates t to midnight UTC on its calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date returning a pointer, handy for optional record fields
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}

// Amount builds an optional value from a float
func Amount(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}
