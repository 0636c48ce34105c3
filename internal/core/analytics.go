package core

import (
	"regexp"
	"slices"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Unknown labels a group dimension that could not be derived.
const Unknown = "Unknown"

var fourDigits = regexp.MustCompile(`\d{4}`)

// GroupKey identifies one analytics group.
type GroupKey struct {
	Year    string `json:"year"`
	Network string `json:"network"`
	Vendor  string `json:"vendor"`
}

func (k GroupKey) String() string {
	return k.Year + "-" + k.Network + "-" + k.Vendor
}

// Summary is the aggregate of one group.
type Summary struct {
	GroupKey
	TotalWithTax    decimal.Decimal `json:"totalWithTax"`
	TotalWithoutTax decimal.Decimal `json:"totalWithoutTax"`
	GLCodes         []string        `json:"glCodes"`
	CommitItems     []string        `json:"commitItems"`
	CostCenters     []string        `json:"costCenters"`
}

// Analytics holds the groups in the order they were first seen.
type Analytics struct {
	order  []GroupKey
	groups map[GroupKey]*Summary
}

// Len returns the number of groups.
func (a *Analytics) Len() int {
	return len(a.order)
}

// Get returns the summary of one group.
func (a *Analytics) Get(k GroupKey) (Summary, bool) {
	s, ok := a.groups[k]
	if !ok {
		return Summary{}, false
	}
	return *s, true
}

// Groups returns every summary in insertion order.
func (a *Analytics) Groups() []Summary {
	out := make([]Summary, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.groups[k])
	}
	return out
}

// TotalWithTax sums the with-tax totals of all groups.
func (a *Analytics) TotalWithTax() decimal.Decimal {
	total := decimal.Zero
	for _, s := range a.groups {
		total = total.Add(s.TotalWithTax)
	}
	return total
}

// TotalWithoutTax sums the without-tax totals of all groups.
func (a *Analytics) TotalWithoutTax() decimal.Decimal {
	total := decimal.Zero
	for _, s := range a.groups {
		total = total.Add(s.TotalWithoutTax)
	}
	return total
}

// ExtractYear derives a bill's year from fromDate, then toDate, then the
// first four-digit run in billingPeriod.
func ExtractYear(b Bill) (string, bool) {
	if !b.FromDate.IsEmpty() {
		return strconv.Itoa(b.FromDate.Year()), true
	}
	if !b.ToDate.IsEmpty() {
		return strconv.Itoa(b.ToDate.Year()), true
	}
	if m := fourDigits.FindString(b.BillingPeriod); m != "" {
		return m, true
	}
	return "", false
}

// KeyFor returns the analytics group of a bill, with Unknown for blanks.
func KeyFor(b Bill) GroupKey {
	year, ok := ExtractYear(b)
	if !ok {
		year = Unknown
	}
	return GroupKey{Year: year, Network: orUnknown(b.Network), Vendor: orUnknown(b.Vendor)}
}

// Aggregate groups bills by year, network and vendor. No bill is dropped:
// anything without a derivable dimension lands in the Unknown bucket.
func Aggregate(bills []Bill) *Analytics {
	a := &Analytics{groups: make(map[GroupKey]*Summary)}
	for _, b := range bills {
		k := KeyFor(b)
		s, ok := a.groups[k]
		if !ok {
			s = &Summary{
				GroupKey:        k,
				TotalWithTax:    decimal.Zero,
				TotalWithoutTax: decimal.Zero,
				GLCodes:         []string{},
				CommitItems:     []string{},
				CostCenters:     []string{},
			}
			a.groups[k] = s
			a.order = append(a.order, k)
		}
		s.TotalWithTax = s.TotalWithTax.Add(b.BillWithTax)
		s.TotalWithoutTax = s.TotalWithoutTax.Add(b.BillWithoutTax)
		s.GLCodes = addDistinct(s.GLCodes, b.GLCode)
		s.CommitItems = addDistinct(s.CommitItems, b.CommitItem)
		s.CostCenters = addDistinct(s.CostCenters, b.CostCenter)
	}
	return a
}

// SeriesPoint is one labelled value of a chart series.
type SeriesPoint struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// QuarterTotals sums amounts with tax per quarter label, first-seen order.
func QuarterTotals(bills []Bill) []SeriesPoint {
	return totalsBy(bills, func(b Bill) string { return orUnknown(b.QuarterLabel()) })
}

// YearTotals sums amounts with tax per derived year, sorted by label.
func YearTotals(bills []Bill) []SeriesPoint {
	points := totalsBy(bills, func(b Bill) string { return KeyFor(b).Year })
	sort.SliceStable(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}

func totalsBy(bills []Bill, label func(Bill) string) []SeriesPoint {
	var points []SeriesPoint
	idx := map[string]int{}
	for _, b := range bills {
		l := label(b)
		i, ok := idx[l]
		if !ok {
			i = len(points)
			idx[l] = i
			points = append(points, SeriesPoint{Label: l, Total: decimal.Zero})
		}
		points[i].Total = points[i].Total.Add(b.BillWithTax)
	}
	return points
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

func addDistinct(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
