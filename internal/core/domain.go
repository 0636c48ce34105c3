package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format used by the backend for bill dates.
const DateLayout = "2006-01-02"

// LongDateLayout renders dates the way billing periods are written.
const LongDateLayout = "January 2, 2006"

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

type (
	// Status is the processing state of a bill.
	Status string

	// Date is a calendar date without time of day. The zero value means absent.
	Date struct {
		time.Time
	}

	// RefNumber is an integer reference (SES numbers) that the backend may
	// transmit either as a JSON number or as a numeric string.
	RefNumber int

	// QuarterRef is the legacy quarter field, sent as a string or a number.
	QuarterRef string

	// Bill is one invoice record tracked by the dashboard.
	Bill struct {
		SerialNo       int             `json:"serialNo"`
		Network        string          `json:"network" validate:"required"`
		Vendor         string          `json:"vendor" validate:"required"`
		QuarterString  string          `json:"quarterString" validate:"required"`
		Quarter        QuarterRef      `json:"quarter,omitempty"`
		Location       string          `json:"location" validate:"required"`
		InvoiceNumber  string          `json:"invoiceNumber" validate:"required"`
		BillWithTax    decimal.Decimal `json:"billWithTax" validate:"required,gt=0"`
		BillWithoutTax decimal.Decimal `json:"billWithoutTax" validate:"required,gt=0"`
		SES1           RefNumber       `json:"ses1" validate:"required"`
		SES2           RefNumber       `json:"ses2" validate:"required"`
		BillingPeriod  string          `json:"billingPeriod"`
		FromDate       Date            `json:"fromDate" validate:"required"`
		ToDate         Date            `json:"toDate" validate:"required"`
		GLCode         string          `json:"glCode" validate:"required"`
		CommitItem     string          `json:"commitItem" validate:"required"`
		CostCenter     string          `json:"costCenter" validate:"required"`
		Status         Status          `json:"status" validate:"omitempty,oneof=Pending Completed"`
		Remarks        string          `json:"remarks"`
		PDFFilePath    string          `json:"pdfFilePath,omitempty"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrBillNotFound  = errors.New("bill not found")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, optionally followed by a time part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty reports whether the date is absent.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String returns the wire form or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Long renders the date as "January 2, 2006".
func (d Date) Long() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(LongDateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON treats unparseable values as absent; the filter and analytics
// code rely on absent dates falling through to their fallbacks.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

func (n RefNumber) String() string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(int(n))
}

// ParseRefNumber parses a reference number; blank input yields zero.
func ParseRefNumber(s string) (RefNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid reference number %q", s)
		}
		i = int(f)
	}
	return RefNumber(i), nil
}

// UnmarshalJSON treats non-numeric text such as "N/A" as absent.
func (n *RefNumber) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, _ := ParseRefNumber(s)
		*n = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("reference number: %w", err)
	}
	*n = RefNumber(int(f))
	return nil
}

func (q *QuarterRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = QuarterRef(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("quarter: %w", err)
	}
	if f == 0 {
		*q = ""
		return nil
	}
	*q = QuarterRef(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// ParseStatus maps free text to a Status; anything unrecognised is Pending.
func ParseStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusCompleted)) {
		return StatusCompleted
	}
	return StatusPending
}

// QuarterLabel returns quarterString, falling back to the legacy quarter.
func (b Bill) QuarterLabel() string {
	if b.QuarterString != "" {
		return b.QuarterString
	}
	return string(b.Quarter)
}

// EffectiveStatus returns the status with the Pending default applied.
func (b Bill) EffectiveStatus() Status {
	if b.Status == "" {
		return StatusPending
	}
	return b.Status
}

// Normalize applies defaults the backend may have left out.
func (b Bill) Normalize() Bill {
	b.Status = b.EffectiveStatus()
	return b
}

// HasPDF reports whether a document is attached.
func (b Bill) HasPDF() bool {
	return strings.TrimSpace(b.PDFFilePath) != ""
}
