package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/amqp"
	"billtracker/internal/core"
	"billtracker/internal/export"
	sheetsmem "billtracker/internal/sheets/memory"
	"billtracker/internal/storage"
	"billtracker/internal/store/memory"
)

type fakeLedger struct {
	mu      sync.Mutex
	records []storage.ExportRecord
}

func (l *fakeLedger) LatestExportedVersion(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var v int64
	for _, r := range l.records {
		if r.Status == storage.ExportStatusExported && r.Version > v {
			v = r.Version
		}
	}
	return v, nil
}

func (l *fakeLedger) RecordExport(_ context.Context, rec storage.ExportRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

type failingWriter struct{}

func (failingWriter) WriteReport(context.Context, export.Report) (string, error) {
	return "", errors.New("quota exceeded")
}

func newBackend(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.New(core.UserInput{Username: "worker", Password: "pw"})
	require.NoError(t, err)
	return s
}

func TestHandleBillsChangedDedupesByVersion(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()
	src := NewSessionSource(backend, core.Credentials{Username: "worker", Password: "pw"}, nil)
	require.NoError(t, src.Login(ctx))
	_, err := backend.CreateBill(ctx, core.Bill{Network: "P2P", Vendor: "Tata"})
	require.NoError(t, err)

	sheet := sheetsmem.New()
	ledger := &fakeLedger{}
	w := NewExportWorker(src, sheet, ledger, nil)

	require.NoError(t, w.HandleBillsChanged(ctx, amqp.NewBillsChangedMessage(amqp.ActionCreate, 1, 10)))
	assert.Equal(t, 1, sheet.Writes())
	assert.Len(t, sheet.Tab(export.BillsSheet), 2)

	// Older and equal versions are already covered.
	require.NoError(t, w.HandleBillsChanged(ctx, amqp.NewBillsChangedMessage(amqp.ActionUpdate, 1, 9)))
	require.NoError(t, w.HandleBillsChanged(ctx, amqp.NewBillsChangedMessage(amqp.ActionUpdate, 1, 10)))
	assert.Equal(t, 1, sheet.Writes())

	require.NoError(t, w.HandleBillsChanged(ctx, amqp.NewBillsChangedMessage(amqp.ActionDelete, 1, 11)))
	assert.Equal(t, 2, sheet.Writes())

	require.Len(t, ledger.records, 2)
	assert.Equal(t, 1, ledger.records[0].BillCount)
	assert.Equal(t, amqp.ActionDelete, ledger.records[1].Action)
}

func TestExportNowSupersedesQueuedEvents(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()
	src := NewSessionSource(backend, core.Credentials{Username: "worker", Password: "pw"}, nil)

	sheet := sheetsmem.New()
	ledger := &fakeLedger{}
	w := NewExportWorker(src, sheet, ledger, nil)
	w.now = func() time.Time { return time.Unix(0, 500) }

	// The source logs in on its own when the session is missing.
	require.NoError(t, w.ExportNow(ctx))
	assert.Equal(t, ActionScheduled, ledger.records[0].Action)

	require.NoError(t, w.HandleBillsChanged(ctx, amqp.NewBillsChangedMessage(amqp.ActionCreate, 1, 400)))
	assert.Equal(t, 1, sheet.Writes())
}

func TestExportFailureIsRecorded(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()
	src := NewSessionSource(backend, core.Credentials{Username: "worker", Password: "pw"}, nil)
	ledger := &fakeLedger{}
	w := NewExportWorker(src, failingWriter{}, ledger, nil)

	err := w.HandleBillsChanged(ctx, amqp.NewBillsChangedMessage(amqp.ActionCreate, 1, 5))
	require.Error(t, err)
	require.Len(t, ledger.records, 1)
	assert.Equal(t, storage.ExportStatusFailed, ledger.records[0].Status)
	assert.Contains(t, ledger.records[0].Error, "quota exceeded")

	v, _ := ledger.LatestExportedVersion(ctx)
	assert.Zero(t, v, "failed exports do not advance the ledger")
}

func TestSessionSourceBadCredentials(t *testing.T) {
	src := NewSessionSource(newBackend(t), core.Credentials{Username: "worker", Password: "wrong"}, nil)
	_, err := src.ListBills(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidLogin)
}
