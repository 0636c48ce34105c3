package core

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the multiplier between amounts without and with tax (18% GST).
var DefaultTaxRate = decimal.RequireFromString("1.18")

// TaxCalculator keeps the with-tax and without-tax amounts of a bill consistent.
type TaxCalculator struct {
	Rate decimal.Decimal
}

// NewTaxCalculator returns a calculator for rate, falling back to the
// default when rate is not a usable multiplier.
func NewTaxCalculator(rate decimal.Decimal) TaxCalculator {
	if !rate.IsPositive() {
		rate = DefaultTaxRate
	}
	return TaxCalculator{Rate: rate}
}

func (c TaxCalculator) rate() decimal.Decimal {
	if !c.Rate.IsPositive() {
		return DefaultTaxRate
	}
	return c.Rate
}

// WithoutTax derives the amount without tax from input. ok is false when the
// input is not a positive number, meaning the derived field must be cleared.
func (c TaxCalculator) WithoutTax(input string) (decimal.Decimal, bool) {
	amount, ok := positiveAmount(input)
	if !ok {
		return decimal.Zero, false
	}
	return amount.DivRound(c.rate(), 8).Round(2), true
}

// WithTax derives the amount with tax from input. ok is false when the input
// is not a positive number, meaning the derived field must be cleared.
func (c TaxCalculator) WithTax(input string) (decimal.Decimal, bool) {
	amount, ok := positiveAmount(input)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(c.rate()).Round(2), true
}

// Complete fills whichever amount of b is missing from the other one.
func (c TaxCalculator) Complete(b Bill) Bill {
	switch {
	case b.BillWithTax.IsPositive() && b.BillWithoutTax.IsZero():
		if v, ok := c.WithoutTax(b.BillWithTax.String()); ok {
			b.BillWithoutTax = v
		}
	case b.BillWithoutTax.IsPositive() && b.BillWithTax.IsZero():
		if v, ok := c.WithTax(b.BillWithoutTax.String()); ok {
			b.BillWithTax = v
		}
	}
	return b
}

func positiveAmount(input string) (decimal.Decimal, bool) {
	d, err := ParseAmount(input)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
