package core

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBills() []Bill {
	return []Bill{
		{SerialNo: 1, Network: "BSNL", Vendor: "BSNL Vendor", QuarterString: "Q1-2024", Location: "Trichy DO",
			GLCode: "GL1", CostCenter: "M75010-SRO", CommitItem: "C_COMMEXP", Status: StatusPending,
			BillWithTax: decimal.NewFromInt(118), FromDate: NewDate(2024, 4, 1), InvoiceNumber: "INV-001"},
		{SerialNo: 2, Network: "P2P", Vendor: "RAILTEL CORPORATION OF INDIA LTD", Quarter: "Q2-2024", Location: "Salem DO",
			GLCode: "GL2", CostCenter: "M78010-TNSO", CommitItem: "C_R&MEQPC", Status: StatusCompleted,
			BillWithTax: decimal.NewFromInt(236), FromDate: NewDate(2023, 7, 1), Remarks: "Late fee"},
		{SerialNo: 3, Network: "BSNL", Vendor: "BSNL Vendor", QuarterString: "Q2-2024", Location: "Trichy DO",
			GLCode: "GL1", Status: StatusCompleted, BillingPeriod: "July 2024 - September 2024"},
	}
}

func serials(bills []Bill) []int {
	out := make([]int, len(bills))
	for i, b := range bills {
		out[i] = b.SerialNo
	}
	return out
}

func TestFilterBillsIdentity(t *testing.T) {
	bills := sampleBills()
	assert.Equal(t, bills, FilterBills(bills, Criteria{}))
	assert.Empty(t, FilterBills(nil, Criteria{}))
}

func TestFilterBillsSingleField(t *testing.T) {
	bills := sampleBills()
	cases := []struct {
		name     string
		criteria Criteria
		want     []int
	}{
		{"network", Criteria{Network: "BSNL"}, []int{1, 3}},
		{"vendor", Criteria{Vendor: "RAILTEL CORPORATION OF INDIA LTD"}, []int{2}},
		{"quarter string", Criteria{Quarter: "Q2-2024"}, []int{2, 3}},
		{"location", Criteria{Location: "Salem DO"}, []int{2}},
		{"status", Criteria{Status: "Completed"}, []int{2, 3}},
		{"gl code", Criteria{GLCode: "GL1"}, []int{1, 3}},
		{"cost center missing on bill never matches", Criteria{CostCenter: "M75010-SRO"}, []int{1}},
		{"commit item", Criteria{CommitItem: "C_R&MEQPC"}, []int{2}},
		{"year from fromDate", Criteria{Year: "2024"}, []int{1}},
		{"year ignores billing period", Criteria{Year: "2023"}, []int{2}},
		{"search is case-insensitive", Criteria{Search: "late FEE"}, []int{2}},
		{"search numeric field", Criteria{Search: "236"}, []int{2}},
		{"search invoice", Criteria{Search: "inv-00"}, []int{1}},
		{"exact match is case-sensitive", Criteria{Network: "bsnl"}, []int{}},
		{"combined", Criteria{Network: "BSNL", Status: "Completed"}, []int{3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serials(FilterBills(bills, tc.criteria)))
		})
	}
}

func TestFilterAfterDelete(t *testing.T) {
	bills := sampleBills()
	remaining := append([]Bill{}, bills[0], bills[2])
	got := FilterBills(remaining, Criteria{Network: "BSNL"})
	assert.Equal(t, []int{1, 3}, serials(got))
	assert.Empty(t, FilterBills(remaining, Criteria{Network: "P2P"}))
}

func TestFilterForAnalyticsUsesDerivedYear(t *testing.T) {
	bills := sampleBills()
	got := FilterForAnalytics(bills, AnalyticsCriteria{Year: "2024"})
	assert.Equal(t, []int{1, 3}, serials(got))

	got = FilterForAnalytics(bills, AnalyticsCriteria{Quarter: "Q2-2024", Network: "P2P"})
	assert.Equal(t, []int{2}, serials(got))
}

func TestCriteriaRoundTripValues(t *testing.T) {
	c := Criteria{Search: "x", Network: "BSNL", CommitItem: "C_COMMEXP"}
	got := CriteriaFromValues(c.Values())
	assert.Equal(t, c, got)
	assert.True(t, CriteriaFromValues(url.Values{}).IsEmpty())
	assert.NotEqual(t, c.Key(), Criteria{}.Key())
}

func TestBuildFilterOptions(t *testing.T) {
	cfg := Configuration{Networks: []string{"AWS"}, NetworkConfig: map[string]NetworkSettings{"AWS": {}}}
	opts := BuildFilterOptions(sampleBills(), cfg)
	assert.Equal(t, []string{"2023", "2024"}, opts.Years)
	assert.Equal(t, []string{"2023", "2024"}, opts.AnalyticsYears)
	assert.Equal(t, []string{"AWS", "BSNL", "P2P"}, opts.Networks)
	assert.Equal(t, []string{"Q1-2024", "Q2-2024"}, opts.Quarters)
	assert.Equal(t, []string{"Pending", "Completed"}, opts.Statuses)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleBills())
	require.Equal(t, 3, s.Count)
	assert.True(t, s.TotalWithTax.Equal(decimal.NewFromInt(354)))
}
