package core

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// requiredFieldLabels maps Bill fields to the labels shown to the user, in
// the order the form lists them.
var requiredFieldLabels = []struct {
	field string
	label string
}{
	{"Network", "Network"},
	{"Vendor", "Vendor"},
	{"QuarterString", "Quarter"},
	{"Location", "Location"},
	{"InvoiceNumber", "Invoice Number"},
	{"BillWithTax", "Bill With Tax"},
	{"BillWithoutTax", "Bill Without Tax"},
	{"SES1", "SES1"},
	{"SES2", "SES2"},
	{"FromDate", "From Date"},
	{"ToDate", "To Date"},
	{"GLCode", "GL Code"},
	{"CommitItem", "Commit Item"},
	{"CostCenter", "Cost Center"},
}

var billValidator = newBillValidator()

func newBillValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(Date)
		if !ok {
			return nil
		}
		return d.String()
	}, Date{})
	return v
}

// ValidationError lists every problem found on a bill form.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "Please fill in the following required fields: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Invalid...)
	return strings.Join(parts, "; ")
}

// ValidateBill checks the bill form before it is sent to the backend.
func ValidateBill(b Bill) error {
	err := billValidator.Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	labels := make(map[string]string, len(requiredFieldLabels))
	rank := make(map[string]int, len(requiredFieldLabels))
	for i, fl := range requiredFieldLabels {
		labels[fl.field] = fl.label
		rank[fl.label] = i
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		label, ok := labels[fe.StructField()]
		if !ok {
			label = fe.StructField()
		}
		switch fe.Tag() {
		case "required":
			out.Missing = append(out.Missing, label)
		case "gt":
			out.Invalid = append(out.Invalid, label+" must be greater than zero")
		case "oneof":
			out.Invalid = append(out.Invalid, label+" must be one of: "+fe.Param())
		default:
			out.Invalid = append(out.Invalid, label+" is invalid")
		}
	}
	sort.SliceStable(out.Missing, func(i, j int) bool { return rank[out.Missing[i]] < rank[out.Missing[j]] })
	return out
}
