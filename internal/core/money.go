// Package core provides amount parsing and formatting utilities.
//
// Amounts are carried as shopspring decimals so that totals and tax
// conversions never accumulate binary floating point error.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, as well as
// Indian digit grouping when a dot is present (1,23,456.78). Negative values are
// rejected.
//
// Examples:
//
//	ParseAmount("118")        -> 118
//	ParseAmount("12,34")      -> 12.34
//	ParseAmount("1,23,456.7") -> 123456.7
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatRupees renders an amount with the rupee sign and en-IN grouping,
// e.g. 123456.5 -> "₹1,23,456.50".
func FormatRupees(d decimal.Decimal) string {
	return "₹" + FormatIndian(d)
}

// FormatIndian renders an amount with two decimals and lakh/crore grouping.
func FormatIndian(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if len(intPart) > 3 {
		head := intPart[:len(intPart)-3]
		tail := intPart[len(intPart)-3:]
		// Leading group may be one or two digits, every other group is two.
		first := len(head) % 2
		if first > 0 {
			b.WriteString(head[:first])
		}
		for i := first; i < len(head); i += 2 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(head[i : i+2])
		}
		b.WriteByte(',')
		b.WriteString(tail)
	} else {
		b.WriteString(intPart)
	}

	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
