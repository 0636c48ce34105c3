package commands

import (
	"context"

	"billtracker/internal/core"
)

// TaxCalc derives one amount from the other. source names the edited field
// ("billWithTax" or "billWithoutTax"); an unusable value clears the derived
// field instead of failing.
func (c *Commands) TaxCalc(_ context.Context, in Input) (Result, error) {
	source, value := in.Get("source"), in.Get("value")
	data := map[string]string{}
	switch source {
	case "billWithoutTax":
		data["billWithoutTax"] = value
		if v, ok := c.opts.Tax.WithTax(value); ok {
			data["billWithTax"] = v.StringFixed(2)
		} else {
			data["billWithTax"] = ""
		}
	default:
		data["billWithTax"] = value
		if v, ok := c.opts.Tax.WithoutTax(value); ok {
			data["billWithoutTax"] = v.StringFixed(2)
		} else {
			data["billWithoutTax"] = ""
		}
	}
	return Result{Level: LevelInfo, Data: data}, nil
}

// DerivePeriod builds the billing period text from dates or a quarter label.
func (c *Commands) DerivePeriod(_ context.Context, in Input) (Result, error) {
	from, _ := core.ParseDate(in.Get("fromDate"))
	to, _ := core.ParseDate(in.Get("toDate"))
	quarter := in.Get("quarterString")
	if quarter == "" {
		quarter = in.Get("quarter")
	}
	period := core.DerivePeriod(core.PeriodInput{
		From:         from,
		To:           to,
		QuarterLabel: quarter,
		Today:        c.now(),
	}, c.opts.Calendar)
	return Result{Level: LevelInfo, Data: map[string]string{"billingPeriod": period}}, nil
}
