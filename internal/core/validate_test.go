package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeBill() Bill {
	return Bill{
		Network: "BSNL", Vendor: "BSNL Vendor", QuarterString: "Q1-2024", Location: "Trichy DO",
		InvoiceNumber: "INV-1", BillWithTax: decimal.NewFromInt(118), BillWithoutTax: decimal.NewFromInt(100),
		SES1: 11, SES2: 22, FromDate: NewDate(2024, 4, 1), ToDate: NewDate(2024, 6, 30),
		GLCode: "GL1", CommitItem: "C_COMMEXP", CostCenter: "M75010-SRO",
	}
}

func TestValidateBillComplete(t *testing.T) {
	assert.NoError(t, ValidateBill(completeBill()))
}

func TestValidateBillListsEveryMissingField(t *testing.T) {
	err := ValidateBill(Bill{})
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"Network", "Vendor", "Quarter", "Location", "Invoice Number", "Bill With Tax",
		"Bill Without Tax", "SES1", "SES2", "From Date", "To Date", "GL Code", "Commit Item", "Cost Center",
	}, verr.Missing)
	assert.Contains(t, err.Error(), "Please fill in the following required fields: Network, Vendor, Quarter")
}

func TestValidateBillPartial(t *testing.T) {
	b := completeBill()
	b.Vendor = ""
	b.ToDate = Date{}
	b.Status = "Archived"
	err := ValidateBill(b)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Vendor", "To Date"}, verr.Missing)
	require.Len(t, verr.Invalid, 1)
	assert.Contains(t, verr.Invalid[0], "Status")
}
