package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/h2non/filetype"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/store"
)

// MaxPDFSize is the largest accepted upload.
const MaxPDFSize = 10 << 20

var (
	ErrNoFile          = errors.New("No file selected")
	ErrEmptyFile       = errors.New("Selected file is empty")
	ErrNotPDF          = errors.New("Please select a PDF file only")
	ErrFileTooLarge    = errors.New("File size too large. Please select a file smaller than 10MB")
	ErrInvalidBillRef  = errors.New("Cannot upload PDF: Invalid bill reference")
	ErrBillRefRequired = errors.New("Please select a bill")
)

// BillFromInput reads the bill form. Amounts, SES numbers and dates that do
// not parse are left empty so validation reports them as missing.
func BillFromInput(in Input) core.Bill {
	b := core.Bill{
		SerialNo:      in.Int("serialNo"),
		Network:       in.Get("network"),
		Vendor:        in.Get("vendor"),
		QuarterString: in.Get("quarterString"),
		Location:      in.Get("location"),
		InvoiceNumber: in.Get("invoiceNumber"),
		BillingPeriod: in.Get("billingPeriod"),
		GLCode:        in.Get("glCode"),
		CommitItem:    in.Get("commitItem"),
		CostCenter:    in.Get("costCenter"),
		Remarks:       in.Get("remarks"),
		PDFFilePath:   in.Get("pdfFilePath"),
	}
	if b.QuarterString == "" {
		b.QuarterString = in.Get("quarter")
	}
	if v, err := core.ParseAmount(in.Get("billWithTax")); err == nil {
		b.BillWithTax = v
	}
	if v, err := core.ParseAmount(in.Get("billWithoutTax")); err == nil {
		b.BillWithoutTax = v
	}
	if v, err := core.ParseRefNumber(in.Get("ses1")); err == nil {
		b.SES1 = v
	}
	if v, err := core.ParseRefNumber(in.Get("ses2")); err == nil {
		b.SES2 = v
	}
	if d, err := core.ParseDate(in.Get("fromDate")); err == nil {
		b.FromDate = d
	}
	if d, err := core.ParseDate(in.Get("toDate")); err == nil {
		b.ToDate = d
	}
	if s := in.Get("status"); s != "" {
		b.Status = core.ParseStatus(s)
	}
	return b.Normalize()
}

// CreateBill validates and stores a new bill, then attaches the PDF if one
// was submitted.
func (c *Commands) CreateBill(ctx context.Context, in Input) (Result, error) {
	return c.saveBill(ctx, in, false)
}

// UpdateBill validates and rewrites an existing bill, keeping its PDF.
func (c *Commands) UpdateBill(ctx context.Context, in Input) (Result, error) {
	return c.saveBill(ctx, in, true)
}

func (c *Commands) saveBill(ctx context.Context, in Input, editing bool) (Result, error) {
	b := BillFromInput(in)
	if editing && b.SerialNo == 0 {
		return Result{}, ErrBillRefRequired
	}
	if err := core.ValidateBill(b); err != nil {
		return Result{}, err
	}
	if b.BillingPeriod == "" {
		b.BillingPeriod = core.DerivePeriod(core.PeriodInput{
			From: b.FromDate, To: b.ToDate, QuarterLabel: b.QuarterString, Today: c.now(),
		}, c.opts.Calendar)
	}

	var (
		res store.MutationResult
		err error
		msg string
	)
	if editing {
		if c.state != nil && b.PDFFilePath == "" {
			if existing, ok := c.state.Snapshot().Bill(b.SerialNo); ok {
				b.PDFFilePath = existing.PDFFilePath
			}
		}
		res, err = c.backend.UpdateBill(ctx, b.SerialNo, b)
		if err != nil {
			return Result{}, fmt.Errorf("Failed to update bill: %w", err)
		}
		msg = "Bill updated successfully!"
	} else {
		res, err = c.backend.CreateBill(ctx, b)
		if err != nil {
			return Result{}, fmt.Errorf("Failed to add bill: %w", err)
		}
		b.SerialNo = res.SerialNo
		msg = "Bill added successfully!"
	}

	c.logger.InfoContext(ctx, "Bill saved",
		log.FieldSerialNo, b.SerialNo,
		log.FieldNetwork, b.Network,
		log.FieldVendor, b.Vendor,
		log.FieldAmount, b.BillWithTax.String())

	out := Result{Level: LevelSuccess, Message: msg, Data: map[string]any{"serialNo": b.SerialNo}}
	if in.File != nil {
		out = c.attachAfterWrite(ctx, b.SerialNo, in.File, out)
		if out.Unauthorized {
			return Result{}, store.ErrUnauthorized
		}
	}
	return c.afterWrite(ctx, out)
}

// attachAfterWrite uploads a PDF for a bill that was just written. A failed
// upload downgrades the result to a warning; the bill write stands.
func (c *Commands) attachAfterWrite(ctx context.Context, serialNo int, file *Upload, res Result) Result {
	if serialNo <= 0 {
		res.Level = LevelWarning
		res.Message = joinMessages(res.Message, "PDF was not uploaded: the backend did not return a serial number")
		return res
	}
	msg, err := c.upload(ctx, serialNo, file)
	if err != nil {
		if store.IsUnauthorized(err) {
			res.Unauthorized = true
			return res
		}
		c.logger.WarnContext(ctx, "PDF upload after bill write failed",
			log.FieldSerialNo, serialNo,
			log.FieldError, err)
		res.Level = LevelWarning
		res.Message = joinMessages(res.Message, Message(err))
		return res
	}
	res.Message = joinMessages(res.Message, msg)
	return res
}

// DeleteBill removes a bill.
func (c *Commands) DeleteBill(ctx context.Context, in Input) (Result, error) {
	serialNo := in.Int("serialNo")
	if serialNo == 0 {
		return Result{}, ErrBillRefRequired
	}
	if _, err := c.backend.DeleteBill(ctx, serialNo); err != nil {
		return Result{}, fmt.Errorf("Failed to delete bill: %w", err)
	}
	c.logger.InfoContext(ctx, "Bill deleted", log.FieldSerialNo, serialNo)
	return c.afterWrite(ctx, Result{Level: LevelSuccess, Message: "Bill deleted successfully!"})
}

// UploadPDF attaches a PDF to an existing bill.
func (c *Commands) UploadPDF(ctx context.Context, in Input) (Result, error) {
	serialNo := in.Int("serialNo")
	if serialNo == 0 {
		return Result{}, ErrInvalidBillRef
	}
	msg, err := c.upload(ctx, serialNo, in.File)
	if err != nil {
		return Result{}, err
	}
	return c.afterWrite(ctx, Result{Level: LevelSuccess, Message: msg, Data: map[string]any{"serialNo": serialNo}})
}

// sessionProbeForgetter is implemented by backends that cache the session
// probe.
type sessionProbeForgetter interface {
	ForgetProbe()
}

func (c *Commands) upload(ctx context.Context, serialNo int, file *Upload) (string, error) {
	if err := CheckPDF(file); err != nil {
		return "", err
	}
	if f, ok := c.backend.(sessionProbeForgetter); ok {
		f.ForgetProbe()
	}
	if _, err := c.backend.CurrentUser(ctx); err != nil {
		return "", err
	}
	msg, err := c.backend.UploadPDF(ctx, serialNo, path.Base(file.Filename), bytes.NewReader(file.Data))
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "PDF uploaded",
		log.FieldSerialNo, serialNo,
		"size", len(file.Data))
	return orDefault(msg, "PDF uploaded successfully!"), nil
}

// CheckPDF accepts non-empty files up to MaxPDFSize that are PDFs by content
// type, extension or magic bytes.
func CheckPDF(file *Upload) error {
	if file == nil || file.Filename == "" && len(file.Data) == 0 {
		return ErrNoFile
	}
	if len(file.Data) == 0 {
		return ErrEmptyFile
	}
	if len(file.Data) > MaxPDFSize {
		return ErrFileTooLarge
	}
	ct := file.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(file.Data)
	}
	if strings.HasPrefix(ct, "application/pdf") ||
		strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") ||
		filetype.Is(file.Data, "pdf") {
		return nil
	}
	return ErrNotPDF
}
