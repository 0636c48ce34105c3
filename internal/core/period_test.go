package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDerivePeriod(t *testing.T) {
	cal := DefaultFiscalCalendar()
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   PeriodInput
		want string
	}{
		{"both dates", PeriodInput{From: NewDate(2024, 4, 1), To: NewDate(2024, 6, 30), QuarterLabel: "Q1-2024"}, "April 1, 2024 - June 30, 2024"},
		{"from only", PeriodInput{From: NewDate(2024, 4, 1)}, "From: April 1, 2024"},
		{"to only", PeriodInput{To: NewDate(2024, 6, 30)}, "To: June 30, 2024"},
		{"q1", PeriodInput{QuarterLabel: "Q1-2023"}, "April 2023 - June 2023"},
		{"q2", PeriodInput{QuarterLabel: "Q2-2023"}, "July 2023 - September 2023"},
		{"q3", PeriodInput{QuarterLabel: "Q3-2023"}, "October 2023 - December 2023"},
		{"q4 rolls into next year", PeriodInput{QuarterLabel: "Q4-2023"}, "January 2024 - March 2024"},
		{"fiscal prefix", PeriodInput{QuarterLabel: "Q2-FY2024"}, "July 2024 - September 2024"},
		{"no year uses today", PeriodInput{QuarterLabel: "Q1", Today: today}, "April 2025 - June 2025"},
		{"year before the quarter is not a suffix", PeriodInput{QuarterLabel: "FY2023-Q4", Today: today}, "January 2026 - March 2026"},
		{"short trailing number is not a year", PeriodInput{QuarterLabel: "Q3-5", Today: today}, "October 2025 - December 2025"},
		{"last dash wins", PeriodInput{QuarterLabel: "North-Q1-2022", Today: today}, "April 2022 - June 2022"},
		{"custom label verbatim", PeriodInput{QuarterLabel: "Half year 1"}, "Half year 1"},
		{"nothing", PeriodInput{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DerivePeriod(tc.in, cal))
		})
	}
}

func TestFiscalCalendarJanuaryStart(t *testing.T) {
	cal := FiscalCalendar{StartMonth: time.January}
	assert.Equal(t, "October 2023 - December 2023", QuarterPeriod("Q4-2023", time.Time{}, cal))
}
