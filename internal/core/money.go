// Package core provides money parsing and formatting utilities.
//
// Amounts are kept as exact decimals end to end; rounding only happens when a
// value is rendered for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the symbol prefixed to rendered amounts.
const DefaultCurrency = "S/"

// ParseAmount converts user input to a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and does
// not round. Negative and zero values are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.345, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CoerceAmount reads a stored amount cell. Anything unparseable becomes zero
// so the row stays visible.
func CoerceAmount(s string) decimal.Decimal {
	d, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, DefaultCurrency))
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		// "1,234.50": comma is a thousands separator
		s = strings.ReplaceAll(s, ",", "")
	}
	return decimal.NewFromString(s)
}

// FormatAmount renders d with two decimals, thousands grouping and the
// currency symbol, e.g. "S/ 1,234.50".
func FormatAmount(d decimal.Decimal, symbol string) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	if symbol == "" {
		return out
	}
	return symbol + " " + out
}
