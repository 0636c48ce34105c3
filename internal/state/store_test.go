package state

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/core"
	"billtracker/internal/store"
	"billtracker/internal/store/memory"
)

type fakeSource struct {
	bills     []core.Bill
	billsErr  error
	cfg       core.Configuration
	cfgErr    error
	locations []string
	locErr    error
}

func (f *fakeSource) ListBills(context.Context) ([]core.Bill, error) { return f.bills, f.billsErr }
func (f *fakeSource) GetConfig(context.Context) (core.Configuration, error) {
	return f.cfg, f.cfgErr
}
func (f *fakeSource) ListLocations(context.Context) ([]string, error) { return f.locations, f.locErr }

func bill(serial int, network, vendor string, amount int64, from string) core.Bill {
	b := core.Bill{
		SerialNo:    serial,
		Network:     network,
		Vendor:      vendor,
		BillWithTax: decimal.NewFromInt(amount),
	}
	if from != "" {
		b.FromDate, _ = core.ParseDate(from)
	}
	return b
}

func TestReload_SwapsSnapshotAndNotifies(t *testing.T) {
	src := &fakeSource{
		bills:     []core.Bill{bill(1, "A", "X", 100, "2023-05-01"), bill(2, "B", "Y", 50, "")},
		cfg:       core.DefaultConfiguration(),
		locations: []string{"Kochi"},
	}
	st := New(src, nil)

	var notified atomic.Int32
	unsubscribe := st.Subscribe(func(s Snapshot) {
		notified.Add(1)
		assert.Len(t, s.Bills, 2)
	})

	snap, err := st.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Version)
	assert.True(t, snap.Loaded())
	assert.Equal(t, []string{"Kochi"}, snap.Locations)
	assert.Equal(t, core.StatusPending, snap.Bills[0].Status, "bills are normalized")
	assert.Contains(t, snap.Config.NetworkNames(), "A", "networks seen on bills are added to the config")
	assert.Equal(t, int32(1), notified.Load())

	unsubscribe()
	_, err = st.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), notified.Load())
	assert.Equal(t, uint64(2), st.Snapshot().Version)
}

func TestReload_BackendErrorFallsBackToEmpty(t *testing.T) {
	src := &fakeSource{
		billsErr:  &store.APIError{Status: 500, Message: "Database unavailable"},
		cfg:       core.DefaultConfiguration(),
		locations: []string{"Kochi"},
	}
	st := New(src, nil)

	snap, err := st.Reload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Bills)
	assert.Equal(t, []string{"Database unavailable"}, snap.Warnings)
	assert.Equal(t, []string{"Kochi"}, snap.Locations)
}

func TestReload_UnauthorizedClearsState(t *testing.T) {
	src := &fakeSource{bills: []core.Bill{bill(1, "A", "X", 10, "")}}
	st := New(src, nil)
	_, err := st.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Snapshot().Bills, 1)

	src.billsErr = store.ErrUnauthorized
	snap, err := st.Reload(context.Background())
	assert.ErrorIs(t, err, store.ErrUnauthorized)
	assert.Empty(t, snap.Bills)
	assert.False(t, snap.Loaded())
}

func TestReload_TransportErrorKeepsSnapshot(t *testing.T) {
	src := &fakeSource{bills: []core.Bill{bill(1, "A", "X", 10, "")}}
	st := New(src, nil)
	_, err := st.Reload(context.Background())
	require.NoError(t, err)

	src.locErr = errors.New("connection refused")
	_, err = st.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load locations")
	assert.Len(t, st.Snapshot().Bills, 1)
	assert.Equal(t, uint64(1), st.Snapshot().Version)
}

func TestDeletingBillRemovesItFromFilterResults(t *testing.T) {
	ctx := context.Background()
	backend, err := memory.New(core.UserInput{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	_, err = backend.Login(ctx, core.Credentials{Username: "admin", Password: "secret"})
	require.NoError(t, err)

	for _, b := range []core.Bill{
		bill(0, "BSNL", "BSNL Kerala", 100, "2023-05-01"),
		bill(0, "BSNL", "BSNL Kerala", 50, "2023-06-01"),
		bill(0, "P2P", "Airtel", 70, "2023-07-01"),
	} {
		_, err := backend.CreateBill(ctx, b)
		require.NoError(t, err)
	}

	st := New(backend, nil)
	views := NewViews(st, nil)
	_, err = st.Reload(ctx)
	require.NoError(t, err)

	before := views.Bills(core.Criteria{Network: "BSNL"})
	require.Len(t, before.Bills, 2)
	assert.Len(t, views.Bills(core.Criteria{}).Bills, 3)

	_, err = backend.DeleteBill(ctx, before.Bills[0].SerialNo)
	require.NoError(t, err)
	_, err = st.Reload(ctx)
	require.NoError(t, err)

	after := views.Bills(core.Criteria{Network: "BSNL"})
	require.Len(t, after.Bills, 1)
	assert.Equal(t, before.Bills[1].SerialNo, after.Bills[0].SerialNo)
	assert.Equal(t, "50", after.Summary.TotalWithTax.String())

	unrelated := views.Bills(core.Criteria{Network: "P2P"})
	require.Len(t, unrelated.Bills, 1)
	assert.Equal(t, "Airtel", unrelated.Bills[0].Vendor)
}

func TestClear(t *testing.T) {
	st := New(&fakeSource{bills: []core.Bill{bill(1, "A", "X", 10, "")}}, nil)
	_, err := st.Reload(context.Background())
	require.NoError(t, err)

	st.Clear()
	snap := st.Snapshot()
	assert.Empty(t, snap.Bills)
	assert.Equal(t, uint64(2), snap.Version)
	_, ok := snap.Bill(1)
	assert.False(t, ok)
}
