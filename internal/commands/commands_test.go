package commands

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/core"
	"billtracker/internal/state"
	"billtracker/internal/store"
	"billtracker/internal/store/memory"
)

// backend wraps the memory store so tests can inject failures.
type backend struct {
	*memory.Store
	loginErr  error
	altCalls  int
	createErr error
	creates   int
}

func (b *backend) Login(ctx context.Context, creds core.Credentials) (core.User, error) {
	if b.loginErr != nil {
		return core.User{}, b.loginErr
	}
	return b.Store.Login(ctx, creds)
}

func (b *backend) LoginAlt(ctx context.Context, creds core.Credentials) (core.User, error) {
	b.altCalls++
	return b.Store.LoginAlt(ctx, creds)
}

func (b *backend) CreateBill(ctx context.Context, bill core.Bill) (store.MutationResult, error) {
	b.creates++
	if b.createErr != nil {
		return store.MutationResult{}, b.createErr
	}
	return b.Store.CreateBill(ctx, bill)
}

type harness struct {
	backend  *backend
	state    *state.Store
	registry *Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem, err := memory.New(core.UserInput{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	be := &backend{Store: mem}
	st := state.New(be, nil)
	cmds := New(be, st, DefaultOptions(), nil)
	return &harness{backend: be, state: st, registry: cmds.Registry()}
}

func (h *harness) do(t *testing.T, action string, values url.Values) Result {
	t.Helper()
	return h.registry.Dispatch(context.Background(), action, NewInput(values))
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	res := h.do(t, ActionLogin, url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
}

func validBillValues() url.Values {
	return url.Values{
		"network":        {"BSNL"},
		"vendor":         {"BSNL Kerala"},
		"quarterString":  {"Q1-2024"},
		"location":       {"Kochi"},
		"invoiceNumber":  {"INV-1"},
		"billWithTax":    {"118"},
		"billWithoutTax": {"100"},
		"ses1":           {"11"},
		"ses2":           {"12"},
		"fromDate":       {"2024-04-01"},
		"toDate":         {"2024-06-30"},
		"glCode":         {"GL1"},
		"commitItem":     {"CI1"},
		"costCenter":     {"CC1"},
	}
}

func TestDispatch_UnknownActionAndPanic(t *testing.T) {
	r := NewRegistry(nil, nil)
	res := r.Dispatch(context.Background(), "nope", NewInput(nil))
	assert.Equal(t, LevelError, res.Level)
	assert.Equal(t, "Unknown action: nope", res.Message)

	r.Register("boom", func(context.Context, Input) (Result, error) { panic("kaboom") })
	res = r.Dispatch(context.Background(), "boom", NewInput(nil))
	assert.Equal(t, LevelError, res.Level)
	assert.Equal(t, "boom", res.Action)
}

func TestDispatch_ConvertsErrors(t *testing.T) {
	r := NewRegistry(nil, nil)
	cases := []struct {
		name    string
		err     error
		message string
		unauth  bool
	}{
		{"api error verbatim", &store.APIError{Status: 400, Message: "Duplicate invoice"}, "Duplicate invoice", false},
		{"unauthorized", store.ErrUnauthorized, MsgSessionExpired, true},
		{"wrapped unauthorized", errors.Join(errors.New("x"), store.ErrUnauthorized), MsgSessionExpired, true},
		{"upload timeout", store.ErrUploadTimeout, store.ErrUploadTimeout.Error(), false},
		{"upload error", &store.UploadError{Err: errors.New("disk full")}, "Failed to upload PDF: disk full", false},
		{"content error", &store.UnexpectedContentError{Status: 502, StatusText: "Bad Gateway", Path: "/api/bills"},
			"Server error: 502 Bad Gateway. Expected JSON but got HTML. Check if API endpoint '/api/bills' is available.", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r.Register("act", func(context.Context, Input) (Result, error) { return Result{}, tc.err })
			res := r.Dispatch(context.Background(), "act", NewInput(nil))
			assert.Equal(t, LevelError, res.Level)
			assert.Equal(t, tc.message, res.Message)
			assert.Equal(t, tc.unauth, res.Unauthorized)
			assert.False(t, res.OK())
		})
	}
}

func TestLogin_LoadsStateAndFallsBack(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, ActionLogin, url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, LevelError, res.Level)
	assert.Equal(t, core.ErrInvalidLogin.Error(), res.Message)
	assert.Zero(t, h.backend.altCalls, "bad credentials do not try the alternate endpoint")

	h.backend.loginErr = errors.New("connection reset by peer")
	res = h.do(t, ActionLogin, url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	assert.Equal(t, 1, h.backend.altCalls)
	assert.True(t, res.Reloaded)
	assert.True(t, h.state.Snapshot().Loaded())
	assert.NotEmpty(t, h.state.Snapshot().Config.NetworkNames())

	res = h.do(t, ActionLogin, url.Values{"username": {""}})
	assert.Equal(t, core.ErrMissingCredentials.Error(), res.Message)
}

func TestCreateBill_ValidationBlocksBackendCall(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.do(t, ActionCreateBill, url.Values{"network": {"BSNL"}, "billWithTax": {"abc"}})
	assert.Equal(t, LevelError, res.Level)
	assert.True(t, strings.HasPrefix(res.Message, "Please fill in the following required fields: Vendor, Quarter"))
	assert.Contains(t, res.Message, "Bill With Tax")
	assert.Zero(t, h.backend.creates)
}

func TestBillLifecycle_ReloadsAfterEveryWrite(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.do(t, ActionCreateBill, validBillValues())
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	assert.Equal(t, "Bill added successfully!", res.Message)
	require.Len(t, h.state.Snapshot().Bills, 1)
	created := h.state.Snapshot().Bills[0]
	assert.Equal(t, "April 1, 2024 - June 30, 2024", created.BillingPeriod)
	assert.Equal(t, core.StatusPending, created.Status)

	values := validBillValues()
	values.Set("serialNo", "1")
	values.Set("status", "Completed")
	res = h.do(t, ActionUpdateBill, values)
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	assert.Equal(t, core.StatusCompleted, h.state.Snapshot().Bills[0].Status)

	res = h.do(t, ActionDeleteBill, url.Values{"serialNo": {"1"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	assert.Empty(t, h.state.Snapshot().Bills)

	res = h.do(t, ActionDeleteBill, url.Values{"serialNo": {"1"}})
	assert.Equal(t, "Failed to delete bill: Failed to delete bill", res.Message)
}

func TestCreateBill_BackendErrorIsShown(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.createErr = &store.APIError{Status: 400, Message: "Invoice already recorded"}

	res := h.do(t, ActionCreateBill, validBillValues())
	assert.Equal(t, LevelError, res.Level)
	assert.Equal(t, "Failed to add bill: Invoice already recorded", res.Message)
}

func TestCreateBill_PDFFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	in := NewInput(validBillValues())
	in.File = &Upload{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hello")}
	res := h.registry.Dispatch(context.Background(), ActionCreateBill, in)

	assert.Equal(t, LevelWarning, res.Level)
	assert.Contains(t, res.Message, "Bill added successfully!")
	assert.Contains(t, res.Message, ErrNotPDF.Error())
	assert.Len(t, h.state.Snapshot().Bills, 1, "the bill write is not rolled back")
}

func TestUploadPDF(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	require.Equal(t, LevelSuccess, h.do(t, ActionCreateBill, validBillValues()).Level)

	in := NewInput(url.Values{"serialNo": {"1"}})
	in.File = &Upload{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
	res := h.registry.Dispatch(context.Background(), ActionUploadPDF, in)
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	assert.Equal(t, "bills/1/invoice.pdf", h.state.Snapshot().Bills[0].PDFFilePath)

	res = h.registry.Dispatch(context.Background(), ActionUploadPDF, NewInput(url.Values{"serialNo": {"0"}}))
	assert.Equal(t, ErrInvalidBillRef.Error(), res.Message)
}

func TestUnauthorizedClearsStateAndRedirects(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	require.Equal(t, LevelSuccess, h.do(t, ActionCreateBill, validBillValues()).Level)
	require.NoError(t, h.backend.Store.Logout(context.Background()))

	res := h.do(t, ActionReload, nil)
	assert.True(t, res.Unauthorized)
	assert.Equal(t, MsgSessionExpired, res.Message)
	assert.Empty(t, h.state.Snapshot().Bills)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.do(t, ActionLogout, nil)
	assert.Equal(t, LevelSuccess, res.Level)
	assert.True(t, res.Unauthorized)
	assert.False(t, h.state.Snapshot().Loaded())
}

func TestNetworkManagement(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.do(t, ActionAddNetwork, url.Values{"name": {"MPLS"}, "vendors": {"Tata, Jio"}, "quarters": {"Q1 (Apr-Jun),Q2"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	ns, ok := h.state.Snapshot().Config.Network("MPLS")
	require.True(t, ok)
	assert.Equal(t, []string{"Tata", "Jio"}, ns.Vendors)
	qs := core.Quarters(ns.Quarters)
	require.Len(t, qs, 2)
	assert.Equal(t, "Apr-Jun", qs[0].MonthRange)
	assert.Equal(t, "Jul-Sep", qs[1].MonthRange)

	res = h.do(t, ActionAddNetwork, url.Values{"name": {"MPLS"}, "vendors": {"X"}})
	assert.Equal(t, LevelWarning, res.Level)
	assert.Equal(t, core.ErrNetworkExists.Error(), res.Message)

	res = h.do(t, ActionRenameNetwork, url.Values{"network": {"MPLS"}, "newName": {"BSNL"}})
	assert.Equal(t, "A network with this name already exists!", res.Message)

	res = h.do(t, ActionAddVendor, url.Values{"network": {"MPLS"}, "vendor": {"Airtel"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	res = h.do(t, ActionRenameVendor, url.Values{"network": {"MPLS"}, "vendor": {"Jio"}, "newName": {"Jio Fiber"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	res = h.do(t, ActionRemoveVendor, url.Values{"network": {"MPLS"}, "vendor": {"Tata"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	ns, _ = h.state.Snapshot().Config.Network("MPLS")
	assert.Equal(t, []string{"Jio Fiber", "Airtel"}, ns.Vendors)

	res = h.do(t, ActionSaveQuarters, url.Values{"network": {"MPLS"},
		"quarters": {`[{"name":"Q1","number":1,"monthRange":"Apr-Jun","active":true},{"name":"Q2","number":1,"monthRange":"Jul-Sep","active":true}]`}})
	assert.Equal(t, "Quarter 2: Duplicate quarter number 1", res.Message)

	res = h.do(t, ActionSaveQuarters, url.Values{"network": {"MPLS"},
		"quarters": {`[{"name":"Q1","number":1,"monthRange":"Apr-Jun","active":false}]`}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	assert.Equal(t, "Quarters updated successfully for MPLS", res.Message)

	res = h.do(t, ActionDeleteNetwork, url.Values{"network": {"MPLS"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
	_, ok = h.state.Snapshot().Config.Network("MPLS")
	assert.False(t, ok)
}

func TestUserAdministration(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.do(t, ActionCreateUser, url.Values{"username": {"alice"}})
	assert.Equal(t, errUserFieldsRequired.Error(), res.Message)

	res = h.do(t, ActionCreateUser, url.Values{"username": {"alice"}, "password": {"pw"}, "role": {"USER"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)

	res = h.do(t, ActionListUsers, nil)
	require.True(t, res.OK())
	users, ok := res.Data.([]core.User)
	require.True(t, ok)
	assert.Len(t, users, 2)

	res = h.do(t, ActionResetPassword, url.Values{"username": {"alice"}, "newPassword": {"a"}, "confirmPassword": {"b"}})
	assert.Equal(t, core.ErrPasswordMismatch.Error(), res.Message)
	res = h.do(t, ActionResetPassword, url.Values{"username": {"alice"}, "newPassword": {"pw2"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)

	res = h.do(t, ActionChangePassword, url.Values{"currentPassword": {"secret"}, "newPassword": {"n1"}, "confirmPassword": {"n2"}})
	assert.Equal(t, errNewPasswordMismatch.Error(), res.Message)
	res = h.do(t, ActionChangePassword, url.Values{"currentPassword": {"secret"}, "newPassword": {"n1"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)

	res = h.do(t, ActionDeleteUser, url.Values{"username": {"alice"}})
	require.Equal(t, LevelSuccess, res.Level, res.Message)
}

func TestTaxCalc(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, ActionTaxCalc, url.Values{"source": {"billWithTax"}, "value": {"118"}})
	assert.Equal(t, map[string]string{"billWithTax": "118", "billWithoutTax": "100.00"}, res.Data)

	res = h.do(t, ActionTaxCalc, url.Values{"source": {"billWithoutTax"}, "value": {"100"}})
	assert.Equal(t, map[string]string{"billWithoutTax": "100", "billWithTax": "118.00"}, res.Data)

	res = h.do(t, ActionTaxCalc, url.Values{"source": {"billWithTax"}, "value": {"-5"}})
	assert.Equal(t, LevelInfo, res.Level)
	assert.Equal(t, "", res.Data.(map[string]string)["billWithoutTax"])
}

func TestDerivePeriod(t *testing.T) {
	h := newHarness(t)

	res := h.do(t, ActionDerivePeriod, url.Values{"quarterString": {"Q4-2023"}})
	assert.Equal(t, map[string]string{"billingPeriod": "January 2024 - March 2024"}, res.Data)

	res = h.do(t, ActionDerivePeriod, url.Values{"fromDate": {"2024-04-01"}})
	assert.Equal(t, map[string]string{"billingPeriod": "From: April 1, 2024"}, res.Data)
}

func TestCheckPDF(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj")
	cases := []struct {
		name string
		file *Upload
		want error
	}{
		{"nil", nil, ErrNoFile},
		{"empty", &Upload{Filename: "a.pdf"}, ErrEmptyFile},
		{"too large", &Upload{Filename: "a.pdf", Data: make([]byte, MaxPDFSize+1)}, ErrFileTooLarge},
		{"content type", &Upload{Filename: "scan", ContentType: "application/pdf", Data: []byte("x")}, nil},
		{"extension", &Upload{Filename: "SCAN.PDF", ContentType: "text/plain", Data: []byte("x")}, nil},
		{"magic bytes", &Upload{Filename: "scan.bin", Data: pdf}, nil},
		{"not a pdf", &Upload{Filename: "photo.png", ContentType: "image/png", Data: []byte("png")}, ErrNotPDF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPDF(tc.file)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
