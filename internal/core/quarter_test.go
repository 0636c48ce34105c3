package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuartersLegacy(t *testing.T) {
	in := []QuarterEntry{
		LegacyQuarter("Q1-2024"),
		LegacyQuarter("Quarter Jul to Sep"),
		LegacyQuarter("Q3-2024"),
		LegacyQuarter("Q4-2024"),
		LegacyQuarter("Q1-2025"),
		LegacyQuarter("Only March"),
	}
	got := Quarters(in)
	require.Len(t, got, 6)
	assert.Equal(t, Quarter{Name: "Q1-2024", Number: 1, MonthRange: "Apr-Jun", Active: true}, got[0])
	assert.Equal(t, Quarter{Name: "Quarter Jul to Sep", Number: 2, MonthRange: "Jul-Sep", Active: true}, got[1])
	assert.Equal(t, "Oct-Dec", got[2].MonthRange)
	assert.Equal(t, "Jan-Mar", got[3].MonthRange)
	assert.Equal(t, "Apr-Jun", got[4].MonthRange, "default cycle wraps modulo 4")
	assert.Equal(t, "Jul-Sep", got[5].MonthRange, "a single month token falls back to the default")
}

func TestNormalizeQuartersStructuredDefaults(t *testing.T) {
	var entries []QuarterEntry
	raw := `[{"name":"H1","monthRange":"Apr-Sep","active":false},{"name":"December January"},{"name":"Q3","from":"Oct","to":"Dec","number":7}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))

	got := Quarters(entries)
	assert.Equal(t, Quarter{Name: "H1", Number: 1, MonthRange: "Apr-Sep", Active: false}, got[0])
	assert.Equal(t, Quarter{Name: "December January", Number: 2, MonthRange: "Dec-Jan", Active: true}, got[1])
	assert.Equal(t, Quarter{Name: "Q3", Number: 7, MonthRange: "Oct-Dec", Active: true}, got[2])
}

func TestNormalizeQuartersIdempotent(t *testing.T) {
	var entries []QuarterEntry
	raw := `["Q1-2024", {"name":"Custom Feb-Apr"}, {"name":"Off","number":3,"monthRange":"Oct-Dec","active":false}, "Jan/Feb"]`
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))

	once := NormalizeQuarters(entries)
	twice := NormalizeQuarters(once)
	assert.Equal(t, once, twice)

	// Survives a wire round trip too.
	data, err := json.Marshal(once)
	require.NoError(t, err)
	var decoded []QuarterEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, once, NormalizeQuarters(decoded))
}

func TestQuarterEntryJSON(t *testing.T) {
	data, err := json.Marshal([]QuarterEntry{LegacyQuarter("Q1"), StructuredQuarter(Quarter{Name: "Q2", Number: 2, MonthRange: "Jul-Sep", Active: true})})
	require.NoError(t, err)
	assert.JSONEq(t, `["Q1", {"name":"Q2","number":2,"monthRange":"Jul-Sep","active":true}]`, string(data))
}

func TestInferMonthRange(t *testing.T) {
	cases := map[string]string{
		"April to June":   "Apr-Jun",
		"sep-nov billing": "Sep-Nov",
		"Q4 Jan Mar":      "Jan-Mar",
	}
	for in, want := range cases {
		got, ok := InferMonthRange(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := InferMonthRange("Q1-FY2024")
	assert.False(t, ok)
}

func TestValidateQuarters(t *testing.T) {
	valid := []Quarter{{Name: "Q1", Number: 1, MonthRange: "Apr-Jun"}, {Name: "Q2", Number: 2, MonthRange: "Jul-Sep"}}
	assert.NoError(t, ValidateQuarters(valid))

	cases := []struct {
		qs   []Quarter
		want string
	}{
		{[]Quarter{{Number: 1, MonthRange: "Apr-Jun"}}, "Quarter 1: Name is required"},
		{[]Quarter{{Name: "Q1", MonthRange: "Apr-Jun"}}, "Quarter 1: Valid number is required"},
		{[]Quarter{{Name: "Q1", Number: 1}}, "Quarter 1: Month range is required"},
		{[]Quarter{valid[0], {Name: "Q1b", Number: 1, MonthRange: "x"}}, "Quarter 2: Duplicate quarter number 1"},
	}
	for _, tc := range cases {
		err := ValidateQuarters(tc.qs)
		require.Error(t, err)
		assert.Equal(t, tc.want, err.Error())
	}
}

func TestDefaultMonthRanges(t *testing.T) {
	assert.Equal(t, []string{"Apr-Sep", "Oct-Mar"}, DefaultMonthRanges(2))
	assert.Equal(t, []string{"Apr-Jun", "Jul-Sep", "Oct-Dec", "Jan-Mar"}, DefaultMonthRanges(4))
	assert.Len(t, DefaultMonthRanges(3), 4)
}
