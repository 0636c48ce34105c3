package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billtracker/internal/amqp"
	"billtracker/internal/core"
	"billtracker/internal/export"
	"billtracker/internal/log"
	"billtracker/internal/sheets"
	"billtracker/internal/storage"
	"billtracker/internal/store"
)

// ActionScheduled marks exports started by the ticker rather than an event.
const ActionScheduled = "scheduled"

// Ledger remembers which versions have been mirrored.
type Ledger interface {
	LatestExportedVersion(ctx context.Context) (int64, error)
	RecordExport(ctx context.Context, rec storage.ExportRecord) error
}

// BillSource lists the bills to mirror.
type BillSource interface {
	ListBills(ctx context.Context) ([]core.Bill, error)
}

// ExportWorker mirrors the full bill list into a spreadsheet whenever the
// dashboard reports a change, skipping events already covered by a newer
// export.
type ExportWorker struct {
	bills  BillSource
	writer sheets.ReportWriter
	ledger Ledger
	logger *log.Logger
	now    func() time.Time

	// Serializes exports so ledger versions are checked and written in order.
	mu sync.Mutex
}

func NewExportWorker(bills BillSource, writer sheets.ReportWriter, ledger Ledger, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		bills:  bills,
		writer: writer,
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleBillsChanged processes one bills-changed event from AMQP.
func (w *ExportWorker) HandleBillsChanged(ctx context.Context, msg *amqp.BillsChangedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	latest, err := w.ledger.LatestExportedVersion(ctx)
	if err != nil {
		return fmt.Errorf("read export ledger: %w", err)
	}
	if msg.Version <= latest {
		w.logger.DebugContext(ctx, "Skipping event already covered by a newer export",
			log.FieldAction, msg.Action, "version", msg.Version, "latest", latest)
		return nil
	}
	return w.export(ctx, msg.Action, msg.SerialNo, msg.Version)
}

// ExportNow mirrors the current bills regardless of pending events.
func (w *ExportWorker) ExportNow(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.export(ctx, ActionScheduled, 0, w.now().UnixNano())
}

func (w *ExportWorker) export(ctx context.Context, action string, serialNo int, version int64) error {
	rec := storage.ExportRecord{Version: version, Action: action, SerialNo: serialNo}

	bills, err := w.bills.ListBills(ctx)
	if err != nil {
		return w.fail(ctx, rec, fmt.Errorf("list bills: %w", err))
	}
	rec.BillCount = len(bills)

	ref, err := w.writer.WriteReport(ctx, export.BuildReport(bills))
	if err != nil {
		return w.fail(ctx, rec, fmt.Errorf("write report: %w", err))
	}

	rec.Status = storage.ExportStatusExported
	if err := w.ledger.RecordExport(ctx, rec); err != nil {
		// The sheet is already up to date; a later event will simply re-export.
		w.logger.ErrorContext(ctx, "Failed to record export", log.FieldError, err, "version", version)
	}

	w.logger.InfoContext(ctx, "Mirrored bills to spreadsheet",
		log.FieldAction, action,
		log.FieldSerialNo, serialNo,
		log.FieldBillCount, len(bills),
		log.FieldSheetsRef, ref,
		"version", version)
	return nil
}

func (w *ExportWorker) fail(ctx context.Context, rec storage.ExportRecord, cause error) error {
	rec.Status = storage.ExportStatusFailed
	rec.Error = cause.Error()
	if err := w.ledger.RecordExport(ctx, rec); err != nil {
		w.logger.ErrorContext(ctx, "Failed to record failed export", log.FieldError, err)
	}
	w.logger.ErrorContext(ctx, "Export failed", log.FieldAction, rec.Action, log.FieldError, cause)
	return cause
}

// SessionSource lists bills through a backend that needs a login, logging in
// again once when the session has expired.
type SessionSource struct {
	backend store.Backend
	creds   core.Credentials
	logger  *log.Logger
}

func NewSessionSource(backend store.Backend, creds core.Credentials, logger *log.Logger) *SessionSource {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SessionSource{backend: backend, creds: creds, logger: logger.WithComponent(log.ComponentAuth)}
}

// Login opens the session.
func (s *SessionSource) Login(ctx context.Context) error {
	if _, err := s.backend.Login(ctx, s.creds); err != nil {
		return fmt.Errorf("login as %s: %w", s.creds.Username, err)
	}
	s.logger.InfoContext(ctx, "Worker logged in", log.FieldUsername, s.creds.Username)
	return nil
}

func (s *SessionSource) ListBills(ctx context.Context) ([]core.Bill, error) {
	bills, err := s.backend.ListBills(ctx)
	if !errors.Is(err, store.ErrUnauthorized) {
		return bills, err
	}
	s.logger.WarnContext(ctx, "Session expired, logging in again")
	if err := s.Login(ctx); err != nil {
		return nil, err
	}
	return s.backend.ListBills(ctx)
}
