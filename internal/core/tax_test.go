package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTaxCrossCalculation(t *testing.T) {
	calc := NewTaxCalculator(DefaultTaxRate)

	without, ok := calc.WithoutTax("118")
	assert.True(t, ok)
	assert.Equal(t, "100.00", without.StringFixed(2))

	with, ok := calc.WithTax("100")
	assert.True(t, ok)
	assert.Equal(t, "118.00", with.StringFixed(2))

	without, ok = calc.WithoutTax("1000")
	assert.True(t, ok)
	assert.Equal(t, "847.46", without.StringFixed(2))
}

func TestTaxInvalidInputClears(t *testing.T) {
	calc := NewTaxCalculator(decimal.Zero)
	for _, in := range []string{"", "abc", "0", "-5"} {
		_, ok := calc.WithoutTax(in)
		assert.False(t, ok, in)
		_, ok = calc.WithTax(in)
		assert.False(t, ok, in)
	}
}

func TestTaxConfigurableRate(t *testing.T) {
	calc := NewTaxCalculator(decimal.RequireFromString("1.05"))
	with, ok := calc.WithTax("200")
	assert.True(t, ok)
	assert.Equal(t, "210.00", with.StringFixed(2))
}

func TestTaxComplete(t *testing.T) {
	calc := NewTaxCalculator(DefaultTaxRate)
	b := calc.Complete(Bill{BillWithTax: decimal.NewFromInt(236)})
	assert.Equal(t, "200.00", b.BillWithoutTax.StringFixed(2))
	b = calc.Complete(Bill{BillWithoutTax: decimal.NewFromInt(50)})
	assert.Equal(t, "59.00", b.BillWithTax.StringFixed(2))
}
