package core

import "github.com/shopspring/decimal"

// ViewSummary is the footer of the bills listing.
type ViewSummary struct {
	Count        int             `json:"count"`
	TotalWithTax decimal.Decimal `json:"totalWithTax"`
}

// Summarize counts bills and sums their amount with tax.
func Summarize(bills []Bill) ViewSummary {
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.BillWithTax)
	}
	return ViewSummary{Count: len(bills), TotalWithTax: total}
}
