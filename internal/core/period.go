package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	quarterLabel = regexp.MustCompile(`Q([1-4])`)
	// yearSuffix matches the part after a label's last dash: "2023" or "FY2023".
	yearSuffix = regexp.MustCompile(`(?i)^\s*(?:FY\s*)?(\d{4})\s*$`)
)

// FiscalCalendar describes how quarter labels map onto calendar months.
// With the default April start, Q4 covers January to March of the next
// calendar year.
type FiscalCalendar struct {
	StartMonth time.Month
}

// DefaultFiscalCalendar starts the fiscal year in April.
func DefaultFiscalCalendar() FiscalCalendar {
	return FiscalCalendar{StartMonth: time.April}
}

// QuarterRange returns the first and last month of quarter q (1-4) of fiscal
// year y, as calendar (month, year) pairs.
func (c FiscalCalendar) QuarterRange(q, y int) (startMonth time.Month, startYear int, endMonth time.Month, endYear int) {
	start := c.StartMonth
	if start < time.January || start > time.December {
		start = time.April
	}
	offset := int(start-1) + (q-1)*3
	startMonth = time.Month(offset%12 + 1)
	startYear = y + offset/12
	endOffset := offset + 2
	endMonth = time.Month(endOffset%12 + 1)
	endYear = y + endOffset/12
	return
}

// PeriodInput carries what the bill form knows when a period is derived.
type PeriodInput struct {
	From         Date
	To           Date
	QuarterLabel string
	// Today supplies the year for quarter labels without a "-YYYY" suffix.
	Today time.Time
}

// DerivePeriod builds the human-readable billing period. Explicit dates win
// over the quarter label; an unrecognised label is returned verbatim.
func DerivePeriod(in PeriodInput, cal FiscalCalendar) string {
	switch {
	case !in.From.IsEmpty() && !in.To.IsEmpty():
		return in.From.Long() + " - " + in.To.Long()
	case !in.From.IsEmpty():
		return "From: " + in.From.Long()
	case !in.To.IsEmpty():
		return "To: " + in.To.Long()
	}
	return QuarterPeriod(in.QuarterLabel, in.Today, cal)
}

// QuarterPeriod maps labels like "Q4-2023" to "January 2024 - March 2024".
func QuarterPeriod(label string, today time.Time, cal FiscalCalendar) string {
	m := quarterLabel.FindStringSubmatch(label)
	if m == nil {
		return label
	}
	q, _ := strconv.Atoi(m[1])

	year := today.Year()
	if today.IsZero() {
		year = time.Now().Year()
	}
	if i := strings.LastIndex(label, "-"); i >= 0 {
		if ym := yearSuffix.FindStringSubmatch(label[i+1:]); ym != nil {
			year, _ = strconv.Atoi(ym[1])
		}
	}

	sm, sy, em, ey := cal.QuarterRange(q, year)
	return fmt.Sprintf("%s %d - %s %d", sm, sy, em, ey)
}
