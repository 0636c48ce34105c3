// Package export turns a bill list into the spreadsheet layout used for
// xlsx downloads and the Google Sheets mirror.
package export

import (
	"strings"
	"time"

	"billtracker/internal/core"
)

// Sheet names and header colors of the export workbook.
const (
	BillsSheet     = "Bills Data"
	AnalyticsSheet = "Analytics Summary"

	billsHeaderColor     = "366092"
	analyticsHeaderColor = "28A745"
)

var billsHeader = []string{
	"Serial No", "Network", "Vendor", "Quarter", "Location", "Invoice Number",
	"Bill (With Tax)", "Bill (Without Tax)", "SES 1", "SES 2", "Billing Period",
	"From Date", "To Date", "GL Code", "Commit Item", "Cost Center", "Status", "Remarks",
}

var billsWidths = []float64{10, 15, 20, 12, 25, 20, 15, 15, 10, 10, 15, 12, 12, 12, 15, 15, 12, 30}

var analyticsHeader = []string{
	"Year", "Network", "Vendor", "Total With Tax", "Total Without Tax",
	"GL Codes", "Commit Items", "Cost Centers",
}

var analyticsWidths = []float64{8, 15, 20, 18, 18, 15, 15, 15}

// Sheet is one tab of the report.
type Sheet struct {
	Name        string
	Header      []string
	Widths      []float64
	HeaderColor string
	Rows        [][]any
}

// Values returns the header followed by the rows.
func (s Sheet) Values() [][]any {
	out := make([][]any, 0, len(s.Rows)+1)
	head := make([]any, len(s.Header))
	for i, h := range s.Header {
		head[i] = h
	}
	out = append(out, head)
	return append(out, s.Rows...)
}

// Report is the full export of a bill list.
type Report struct {
	Sheets []Sheet
}

// Sheet returns the tab called name.
func (r Report) Sheet(name string) (Sheet, bool) {
	for _, s := range r.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// BuildReport lays out the bills and, when there are any, their analytics
// summary grouped by year, network and vendor.
func BuildReport(bills []core.Bill) Report {
	data := Sheet{
		Name:        BillsSheet,
		Header:      billsHeader,
		Widths:      billsWidths,
		HeaderColor: billsHeaderColor,
		Rows:        make([][]any, 0, len(bills)),
	}
	for _, b := range bills {
		data.Rows = append(data.Rows, billRow(b))
	}
	r := Report{Sheets: []Sheet{data}}
	if len(bills) == 0 {
		return r
	}

	summary := Sheet{
		Name:        AnalyticsSheet,
		Header:      analyticsHeader,
		Widths:      analyticsWidths,
		HeaderColor: analyticsHeaderColor,
	}
	for _, g := range core.Aggregate(bills).Groups() {
		summary.Rows = append(summary.Rows, []any{
			g.Year,
			g.Network,
			g.Vendor,
			g.TotalWithTax.StringFixed(2),
			g.TotalWithoutTax.StringFixed(2),
			strings.Join(g.GLCodes, ", "),
			strings.Join(g.CommitItems, ", "),
			strings.Join(g.CostCenters, ", "),
		})
	}
	r.Sheets = append(r.Sheets, summary)
	return r
}

func billRow(b core.Bill) []any {
	return []any{
		blankZero(b.SerialNo),
		b.Network,
		b.Vendor,
		b.QuarterLabel(),
		b.Location,
		b.InvoiceNumber,
		b.BillWithTax.InexactFloat64(),
		b.BillWithoutTax.InexactFloat64(),
		blankZero(int(b.SES1)),
		blankZero(int(b.SES2)),
		b.BillingPeriod,
		b.FromDate.String(),
		b.ToDate.String(),
		b.GLCode,
		b.CommitItem,
		b.CostCenter,
		string(b.EffectiveStatus()),
		b.Remarks,
	}
}

func blankZero(n int) any {
	if n == 0 {
		return ""
	}
	return n
}

// Filename names an export made at now.
func Filename(now time.Time) string {
	return "BSNL_Bills_Export_" + now.UTC().Format("2006-01-02") + ".xlsx"
}
