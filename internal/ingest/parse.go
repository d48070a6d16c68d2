package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Day-first wins for slash dates.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"20060102",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a calendar date and truncates it to UTC midnight.
// Blank or unparseable input yields nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// ParseAmount parses a monetary value in either "1,234.56" or Brazilian "1.234,56"
// notation, with an optional "R$" prefix. When both separators appear the last one
// is the decimal mark; a separator repeated on its own ("1.234.567") is grouping.
// A single lone separator is the decimal mark. Blank, unparseable or negative input
// yields nil.
func ParseAmount(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return nil
	}

	s, ok := normalizeSeparators(s)
	if !ok {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

// normalizeSeparators rewrites s so that "." is the only, optional, decimal mark
func normalizeSeparators(s string) (string, bool) {
	commas, dots := strings.Count(s, ","), strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		mark, group := ",", "."
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			mark, group = ".", ","
		}
		if strings.Count(s, mark) > 1 {
			return "", false
		}
		s = strings.ReplaceAll(s, group, "")
		return strings.Replace(s, mark, ".", 1), true
	case commas > 1:
		return strings.ReplaceAll(s, ",", ""), true
	case commas == 1:
		return strings.Replace(s, ",", ".", 1), true
	case dots > 1:
		return strings.ReplaceAll(s, ".", ""), true
	}
	return s, true
}
