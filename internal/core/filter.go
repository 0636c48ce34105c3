package core

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Criteria are the list-view filters. Every set field must match; an empty
// field does not filter.
type Criteria struct {
	Search     string `json:"search,omitempty"`
	Year       string `json:"year,omitempty"`
	Network    string `json:"network,omitempty"`
	Vendor     string `json:"vendor,omitempty"`
	Quarter    string `json:"quarter,omitempty"`
	Location   string `json:"location,omitempty"`
	Status     string `json:"status,omitempty"`
	GLCode     string `json:"glCode,omitempty"`
	CostCenter string `json:"costCenter,omitempty"`
	CommitItem string `json:"commitItem,omitempty"`
}

// AnalyticsCriteria are the analytics-tab filters. Year here is the derived
// year (see ExtractYear), not only the fromDate year.
type AnalyticsCriteria struct {
	Year       string `json:"year,omitempty"`
	Quarter    string `json:"quarter,omitempty"`
	Network    string `json:"network,omitempty"`
	Vendor     string `json:"vendor,omitempty"`
	GLCode     string `json:"glCode,omitempty"`
	CostCenter string `json:"costCenter,omitempty"`
	CommitItem string `json:"commitItem,omitempty"`
}

// CriteriaFromValues reads list filters from query or form values.
func CriteriaFromValues(v url.Values) Criteria {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }
	return Criteria{
		Search:     get("search"),
		Year:       get("year"),
		Network:    get("network"),
		Vendor:     get("vendor"),
		Quarter:    get("quarter"),
		Location:   get("location"),
		Status:     get("status"),
		GLCode:     get("glCode"),
		CostCenter: get("costCenter"),
		CommitItem: get("commitItem"),
	}
}

// AnalyticsCriteriaFromValues reads analytics filters from query or form values.
func AnalyticsCriteriaFromValues(v url.Values) AnalyticsCriteria {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }
	return AnalyticsCriteria{
		Year:       get("year"),
		Quarter:    get("quarter"),
		Network:    get("network"),
		Vendor:     get("vendor"),
		GLCode:     get("glCode"),
		CostCenter: get("costCenter"),
		CommitItem: get("commitItem"),
	}
}

// Values renders the criteria back into query values.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("search", c.Search)
	set("year", c.Year)
	set("network", c.Network)
	set("vendor", c.Vendor)
	set("quarter", c.Quarter)
	set("location", c.Location)
	set("status", c.Status)
	set("glCode", c.GLCode)
	set("costCenter", c.CostCenter)
	set("commitItem", c.CommitItem)
	return v
}

// Key is a stable cache key for the criteria.
func (c Criteria) Key() string {
	return c.Values().Encode()
}

// IsEmpty reports whether no filter is set.
func (c Criteria) IsEmpty() bool {
	return c == Criteria{}
}

// Key is a stable cache key for the criteria.
func (c AnalyticsCriteria) Key() string {
	v := url.Values{}
	for k, val := range map[string]string{
		"year": c.Year, "quarter": c.Quarter, "network": c.Network, "vendor": c.Vendor,
		"glCode": c.GLCode, "costCenter": c.CostCenter, "commitItem": c.CommitItem,
	} {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v.Encode()
}

// FilterBills returns the bills matching every set criterion, in input order.
func FilterBills(bills []Bill, c Criteria) []Bill {
	search := strings.ToLower(c.Search)
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if search != "" && !matchesSearch(b, search) {
			continue
		}
		if c.Year != "" && (b.FromDate.IsEmpty() || strconv.Itoa(b.FromDate.Year()) != c.Year) {
			continue
		}
		if !exact(c.Network, b.Network) || !exact(c.Vendor, b.Vendor) ||
			!exact(c.Location, b.Location) || !exact(c.Status, string(b.Status)) ||
			!exact(c.GLCode, b.GLCode) || !exact(c.CostCenter, b.CostCenter) ||
			!exact(c.CommitItem, b.CommitItem) {
			continue
		}
		if c.Quarter != "" && b.QuarterString != c.Quarter && string(b.Quarter) != c.Quarter {
			continue
		}
		out = append(out, b)
	}
	return out
}

// FilterForAnalytics applies the analytics-tab filters, in input order.
func FilterForAnalytics(bills []Bill, c AnalyticsCriteria) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if c.Year != "" {
			if y, ok := ExtractYear(b); !ok || y != c.Year {
				continue
			}
		}
		if c.Quarter != "" && b.QuarterLabel() != c.Quarter {
			continue
		}
		if !exact(c.Network, b.Network) || !exact(c.Vendor, b.Vendor) ||
			!exact(c.GLCode, b.GLCode) || !exact(c.CostCenter, b.CostCenter) ||
			!exact(c.CommitItem, b.CommitItem) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func exact(want, got string) bool {
	return want == "" || want == got
}

func matchesSearch(b Bill, term string) bool {
	for _, v := range searchableValues(b) {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// searchableValues lists the string form of every non-empty field.
func searchableValues(b Bill) []string {
	vals := []string{
		b.Network, b.Vendor, b.QuarterString, string(b.Quarter), b.Location,
		b.InvoiceNumber, b.BillingPeriod, b.GLCode, b.CommitItem, b.CostCenter,
		string(b.Status), b.Remarks, b.PDFFilePath,
		b.SES1.String(), b.SES2.String(), b.FromDate.String(), b.ToDate.String(),
	}
	if b.SerialNo != 0 {
		vals = append(vals, strconv.Itoa(b.SerialNo))
	}
	if !b.BillWithTax.IsZero() {
		vals = append(vals, b.BillWithTax.String())
	}
	if !b.BillWithoutTax.IsZero() {
		vals = append(vals, b.BillWithoutTax.String())
	}
	return lo.Compact(vals)
}

// FilterOptions are the distinct values offered by the filter dropdowns.
type FilterOptions struct {
	Years          []string `json:"years"`
	AnalyticsYears []string `json:"analyticsYears"`
	Networks       []string `json:"networks"`
	Vendors        []string `json:"vendors"`
	Quarters       []string `json:"quarters"`
	Locations      []string `json:"locations"`
	Statuses       []string `json:"statuses"`
	GLCodes        []string `json:"glCodes"`
	CostCenters    []string `json:"costCenters"`
	CommitItems    []string `json:"commitItems"`
}

// BuildFilterOptions collects sorted distinct values from the bills, merged
// with the configured networks and vendors.
func BuildFilterOptions(bills []Bill, cfg Configuration) FilterOptions {
	collect := func(f func(Bill) string, extra ...string) []string {
		vals := append(lo.Map(bills, func(b Bill, _ int) string { return f(b) }), extra...)
		out := lo.Uniq(lo.Compact(vals))
		sort.Strings(out)
		return out
	}
	return FilterOptions{
		Years: collect(func(b Bill) string {
			if b.FromDate.IsEmpty() {
				return ""
			}
			return strconv.Itoa(b.FromDate.Year())
		}),
		AnalyticsYears: collect(func(b Bill) string {
			y, _ := ExtractYear(b)
			return y
		}),
		Networks:    collect(func(b Bill) string { return b.Network }, cfg.NetworkNames()...),
		Vendors:     collect(func(b Bill) string { return b.Vendor }, cfg.Vendors...),
		Quarters:    collect(func(b Bill) string { return b.QuarterLabel() }),
		Locations:   collect(func(b Bill) string { return b.Location }),
		Statuses:    []string{string(StatusPending), string(StatusCompleted)},
		GLCodes:     collect(func(b Bill) string { return b.GLCode }),
		CostCenters: collect(func(b Bill) string { return b.CostCenter }),
		CommitItems: collect(func(b Bill) string { return b.CommitItem }),
	}
}
