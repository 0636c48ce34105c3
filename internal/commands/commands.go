package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/state"
	"billtracker/internal/store"
)

// Action names.
const (
	ActionLogin          = "login"
	ActionRegister       = "register"
	ActionLogout         = "logout"
	ActionReload         = "reload"
	ActionCurrentUser    = "current-user"
	ActionCreateBill     = "create-bill"
	ActionUpdateBill     = "update-bill"
	ActionDeleteBill     = "delete-bill"
	ActionUploadPDF      = "upload-pdf"
	ActionAddNetwork     = "add-network"
	ActionRenameNetwork  = "rename-network"
	ActionDeleteNetwork  = "delete-network"
	ActionAddVendor      = "add-vendor"
	ActionRenameVendor   = "rename-vendor"
	ActionRemoveVendor   = "remove-vendor"
	ActionSaveQuarters   = "save-quarters"
	ActionListUsers      = "list-users"
	ActionCreateUser     = "create-user"
	ActionUpdateUser     = "update-user"
	ActionDeleteUser     = "delete-user"
	ActionResetPassword  = "reset-password"
	ActionChangePassword = "change-password"
	ActionTaxCalc        = "tax-calc"
	ActionDerivePeriod   = "derive-period"
)

// Options tune the bill rules used by the commands.
type Options struct {
	Tax      core.TaxCalculator
	Calendar core.FiscalCalendar
}

// DefaultOptions uses the 18% tax rate and an April fiscal year.
func DefaultOptions() Options {
	return Options{
		Tax:      core.NewTaxCalculator(core.DefaultTaxRate),
		Calendar: core.DefaultFiscalCalendar(),
	}
}

// Commands implements the dashboard actions against a backend.
type Commands struct {
	backend store.Backend
	state   *state.Store
	opts    Options
	logger  *log.Logger
	now     func() time.Time
}

// New builds the command set.
func New(backend store.Backend, st *state.Store, opts Options, logger *log.Logger) *Commands {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Commands{
		backend: backend,
		state:   st,
		opts:    opts,
		logger:  logger.WithComponent(log.ComponentCommands),
		now:     time.Now,
	}
}

// Registry returns a registry with every action registered.
func (c *Commands) Registry() *Registry {
	r := NewRegistry(c.state, c.logger)
	r.Register(ActionLogin, c.Login)
	r.Register(ActionRegister, c.Register)
	r.Register(ActionLogout, c.Logout)
	r.Register(ActionReload, c.Reload)
	r.Register(ActionCurrentUser, c.CurrentUser)

	r.Register(ActionCreateBill, c.CreateBill)
	r.Register(ActionUpdateBill, c.UpdateBill)
	r.Register(ActionDeleteBill, c.DeleteBill)
	r.Register(ActionUploadPDF, c.UploadPDF)

	r.Register(ActionAddNetwork, c.AddNetwork)
	r.Register(ActionRenameNetwork, c.RenameNetwork)
	r.Register(ActionDeleteNetwork, c.DeleteNetwork)
	r.Register(ActionAddVendor, c.AddVendor)
	r.Register(ActionRenameVendor, c.RenameVendor)
	r.Register(ActionRemoveVendor, c.RemoveVendor)
	r.Register(ActionSaveQuarters, c.SaveQuarters)

	r.Register(ActionListUsers, c.ListUsers)
	r.Register(ActionCreateUser, c.CreateUser)
	r.Register(ActionUpdateUser, c.UpdateUser)
	r.Register(ActionDeleteUser, c.DeleteUser)
	r.Register(ActionResetPassword, c.ResetPassword)
	r.Register(ActionChangePassword, c.ChangePassword)

	r.Register(ActionTaxCalc, c.TaxCalc)
	r.Register(ActionDerivePeriod, c.DerivePeriod)
	return r
}

// Reload refreshes the state.
func (c *Commands) Reload(ctx context.Context, _ Input) (Result, error) {
	snap, err := c.reload(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Level: LevelSuccess, Reloaded: true, Data: map[string]any{"bills": len(snap.Bills), "version": snap.Version}}
	if len(snap.Warnings) > 0 {
		res.Level = LevelWarning
		res.Message = snap.Warnings[0]
	}
	return res, nil
}

// reload runs after every mutation so readers never see a patched snapshot.
func (c *Commands) reload(ctx context.Context) (state.Snapshot, error) {
	if c.state == nil {
		return state.Snapshot{}, nil
	}
	return c.state.Reload(ctx)
}

// afterWrite reloads and folds a reload failure into the successful write's
// result as a warning. Unauthorized still propagates.
func (c *Commands) afterWrite(ctx context.Context, res Result) (Result, error) {
	snap, err := c.reload(ctx)
	switch {
	case store.IsUnauthorized(err):
		return Result{}, err
	case err != nil:
		res.Level = LevelWarning
		res.Message = joinMessages(res.Message, "Failed to refresh data: "+Message(err))
	default:
		res.Reloaded = true
		if len(snap.Warnings) > 0 && res.Level == LevelSuccess {
			res.Level = LevelWarning
			res.Message = joinMessages(res.Message, snap.Warnings[0])
		}
	}
	return res, nil
}

func joinMessages(a, b string) string {
	if a == "" {
		return b
	}
	if strings.HasSuffix(a, ".") || strings.HasSuffix(a, "!") {
		return a + " " + b
	}
	return a + ". " + b
}

// isTransportFailure reports errors that say nothing about the credentials,
// for which the alternate login endpoint is worth a try.
func isTransportFailure(err error) bool {
	var (
		apiErr  *store.APIError
		content *store.UnexpectedContentError
	)
	if errors.As(err, &content) {
		return true
	}
	if errors.As(err, &apiErr) || errors.Is(err, core.ErrInvalidLogin) ||
		errors.Is(err, core.ErrMissingCredentials) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
