// Package store defines the ports the dashboard uses to reach a bill backend.
// The REST gateway and the embedded sqlite and memory backends implement them.
package store

import (
	"context"
	"io"

	"billtracker/internal/core"
)

// MutationResult is the acknowledgement returned by bill writes.
type MutationResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	SerialNo int    `json:"serialNo,omitempty"`
}

// Ports for the bill backend.
type (
	BillRepository interface {
		ListBills(ctx context.Context) ([]core.Bill, error)
		CreateBill(ctx context.Context, b core.Bill) (MutationResult, error)
		UpdateBill(ctx context.Context, serialNo int, b core.Bill) (MutationResult, error)
		DeleteBill(ctx context.Context, serialNo int) (MutationResult, error)
	}

	ConfigRepository interface {
		GetConfig(ctx context.Context) (core.Configuration, error)
		SaveConfig(ctx context.Context, cfg core.Configuration) error
		ListLocations(ctx context.Context) ([]string, error)
	}

	// DocumentStore attaches and serves bill PDFs.
	DocumentStore interface {
		// UploadPDF stores the file for a bill and returns the backend message.
		UploadPDF(ctx context.Context, serialNo int, filename string, content io.Reader) (string, error)
		// OpenPDF streams a stored PDF. The caller closes the reader.
		OpenPDF(ctx context.Context, path string) (io.ReadCloser, error)
	}

	Authenticator interface {
		Login(ctx context.Context, creds core.Credentials) (core.User, error)
		LoginAlt(ctx context.Context, creds core.Credentials) (core.User, error)
		Register(ctx context.Context, reg core.Registration) (string, error)
		Logout(ctx context.Context) error
		// CurrentUser probes the session; it returns ErrUnauthorized when
		// nobody is logged in.
		CurrentUser(ctx context.Context) (core.User, error)
	}

	UserAdministrator interface {
		ListUsers(ctx context.Context) ([]core.User, error)
		CreateUser(ctx context.Context, in core.UserInput) (string, error)
		UpdateUser(ctx context.Context, username string, in core.UserInput) (string, error)
		DeleteUser(ctx context.Context, username string) (string, error)
		ResetPassword(ctx context.Context, username, newPassword string) (string, error)
		ChangePassword(ctx context.Context, change core.PasswordChange) (string, error)
	}
)

// Backend is everything the dashboard needs from one backend.
type Backend interface {
	BillRepository
	ConfigRepository
	DocumentStore
	Authenticator
	UserAdministrator
}
