package domain

import (
	"errors"
	"strings"
)

// ErrInvalidIdentifier is returned when a document does not normalize to a CPF or CNPJ
var ErrInvalidIdentifier = errors.New("invalid identifier: expected 11 (CPF) or 14 (CNPJ) digits")

// Identifier is a digit-only document number used as the join key between registries
type Identifier string

// IdentifierKind tells individuals and organizations apart
type IdentifierKind string

const (
	KindIndividual   IdentifierKind = "CPF"
	KindOrganization IdentifierKind = "CNPJ"
	KindInvalid      IdentifierKind = "INVALID"
)

const (
	individualDigits   = 11
	organizationDigits = 14
)

// NormalizeIdentifier keeps only the ASCII digits of raw. It never fails.
func NormalizeIdentifier(raw string) Identifier {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return Identifier(b.String())
}

// ValidateIdentifier normalizes raw and rejects anything that is not a CPF or CNPJ
func ValidateIdentifier(raw string) (Identifier, error) {
	id := NormalizeIdentifier(raw)
	if id.Kind() == KindInvalid {
		return id, ErrInvalidIdentifier
	}
	return id, nil
}

// Kind classifies the identifier by its length
func (id Identifier) Kind() IdentifierKind {
	switch len(id) {
	case individualDigits:
		return KindIndividual
	case organizationDigits:
		return KindOrganization
	default:
		return KindInvalid
	}
}

// IsOrganization reports whether the identifier is a CNPJ
func (id Identifier) IsOrganization() bool {
	return id.Kind() == KindOrganization
}

// Formatted renders the conventional punctuation, e.g. 12.345.678/0001-90
func (id Identifier) Formatted() string {
	s := string(id)
	switch id.Kind() {
	case KindIndividual:
		return s[:3] + "." + s[3:6] + "." + s[6:9] + "-" + s[9:]
	case KindOrganization:
		return s[:2] + "." + s[2:5] + "." + s[5:8] + "/" + s[8:12] + "-" + s[12:]
	default:
		return s
	}
}

func (id Identifier) String() string {
	return string(id)
}
