// Package memory is a process-local backend used for demos and tests.
package memory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"billtracker/internal/core"
	"billtracker/internal/store"
)

type Store struct {
	mu         sync.Mutex
	bills      []core.Bill
	nextSerial int
	cfg        core.Configuration
	locations  []string
	pdfs       map[string][]byte
	accounts   map[string]store.Account
	session    store.Session
}

var _ store.Backend = (*Store)(nil)

// New builds a store holding the default reference data and one
// administrator account.
func New(admin core.UserInput) (*Store, error) {
	s := &Store{
		nextSerial: 1,
		cfg:        core.DefaultConfiguration(),
		locations:  slices.Clone(core.DefaultLocations),
		pdfs:       map[string][]byte{},
		accounts:   map[string]store.Account{},
	}
	if admin.Username == "" {
		admin.Username, admin.Password = "admin", "admin"
	}
	admin.Role = core.RoleAdmin
	acc, err := store.NewAccount(admin)
	if err != nil {
		return nil, fmt.Errorf("seed admin account: %w", err)
	}
	s.accounts[acc.User.Username] = acc
	return s, nil
}

// NewFromFiles seeds the store from base/seed_locations.txt and
// base/seed_bills.json when they exist.
func NewFromFiles(base string, admin core.UserInput) (*Store, error) {
	s, err := New(admin)
	if err != nil {
		return nil, err
	}
	if locs := readLines(filepath.Join(base, "seed_locations.txt")); len(locs) > 0 {
		s.locations = locs
	}
	data, err := os.ReadFile(filepath.Join(base, "seed_bills.json"))
	if err == nil {
		var bills []core.Bill
		if err := json.Unmarshal(data, &bills); err != nil {
			return nil, fmt.Errorf("parse seed bills: %w", err)
		}
		for _, b := range bills {
			s.insert(b)
		}
	}
	return s, nil
}

func (s *Store) insert(b core.Bill) int {
	b = b.Normalize()
	if b.SerialNo <= 0 || s.indexOf(b.SerialNo) >= 0 {
		b.SerialNo = s.nextSerial
	}
	if b.SerialNo >= s.nextSerial {
		s.nextSerial = b.SerialNo + 1
	}
	s.bills = append(s.bills, b)
	return b.SerialNo
}

func (s *Store) indexOf(serialNo int) int {
	return slices.IndexFunc(s.bills, func(b core.Bill) bool { return b.SerialNo == serialNo })
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	if _, err := s.session.Current(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bills), nil
}

func (s *Store) CreateBill(_ context.Context, b core.Bill) (store.MutationResult, error) {
	if _, err := s.session.Current(); err != nil {
		return store.MutationResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.SerialNo = 0
	serial := s.insert(b)
	return store.MutationResult{Success: true, Message: "Bill added successfully", SerialNo: serial}, nil
}

func (s *Store) UpdateBill(_ context.Context, serialNo int, b core.Bill) (store.MutationResult, error) {
	if _, err := s.session.Current(); err != nil {
		return store.MutationResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(serialNo)
	if i < 0 {
		return store.MutationResult{}, &store.APIError{Status: 400, Message: "Failed to update bill"}
	}
	b = b.Normalize()
	b.SerialNo = serialNo
	if b.PDFFilePath == "" {
		b.PDFFilePath = s.bills[i].PDFFilePath
	}
	s.bills[i] = b
	return store.MutationResult{Success: true, Message: "Bill updated successfully"}, nil
}

func (s *Store) DeleteBill(_ context.Context, serialNo int) (store.MutationResult, error) {
	if _, err := s.session.Current(); err != nil {
		return store.MutationResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(serialNo)
	if i < 0 {
		return store.MutationResult{}, &store.APIError{Status: 400, Message: "Failed to delete bill"}
	}
	if p := s.bills[i].PDFFilePath; p != "" {
		delete(s.pdfs, p)
	}
	s.bills = slices.Delete(s.bills, i, i+1)
	return store.MutationResult{Success: true, Message: "Bill deleted successfully"}, nil
}

func (s *Store) GetConfig(_ context.Context) (core.Configuration, error) {
	if _, err := s.session.Current(); err != nil {
		return core.Configuration{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone(), nil
}

func (s *Store) SaveConfig(_ context.Context, cfg core.Configuration) error {
	if _, err := s.session.Current(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
	return nil
}

func (s *Store) ListLocations(_ context.Context) ([]string, error) {
	if _, err := s.session.Current(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.locations), nil
}

func (s *Store) UploadPDF(ctx context.Context, serialNo int, filename string, content io.Reader) (string, error) {
	if _, err := s.session.Current(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		if ctx.Err() != nil {
			return "", store.ErrUploadTimeout
		}
		return "", &store.UploadError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(serialNo)
	if i < 0 {
		return "", &store.UploadError{Err: core.ErrBillNotFound}
	}
	p := path.Join("bills", fmt.Sprint(serialNo), path.Base(filename))
	s.pdfs[p] = data
	s.bills[i].PDFFilePath = p
	return "PDF uploaded successfully", nil
}

func (s *Store) OpenPDF(_ context.Context, p string) (io.ReadCloser, error) {
	if _, err := s.session.Current(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.pdfs[p]
	if !ok {
		return nil, store.ErrPDFNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Login(_ context.Context, creds core.Credentials) (core.User, error) {
	if err := creds.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	acc, ok := s.accounts[creds.Username]
	s.mu.Unlock()
	if !ok || acc.Disabled() || !store.CheckPassword(acc.PasswordHash, creds.Password) {
		return core.User{}, core.ErrInvalidLogin
	}
	s.session.Set(acc.User)
	return acc.User, nil
}

func (s *Store) LoginAlt(ctx context.Context, creds core.Credentials) (core.User, error) {
	return s.Login(ctx, creds)
}

func (s *Store) Register(_ context.Context, reg core.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", err
	}
	acc, err := store.NewAccount(core.UserInput{
		Username: reg.Username, Password: reg.Password, FullName: reg.FullName, Email: reg.Email,
	})
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.User.Username]; exists {
		return "", core.ErrUserExists
	}
	s.accounts[acc.User.Username] = acc
	return "Registration successful", nil
}

func (s *Store) Logout(_ context.Context) error {
	s.session.Clear()
	return nil
}

func (s *Store) CurrentUser(_ context.Context) (core.User, error) {
	return s.session.Current()
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	if _, err := s.session.RequireAdmin(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]core.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, acc.User)
	}
	slices.SortFunc(users, func(a, b core.User) int { return strings.Compare(a.Username, b.Username) })
	return users, nil
}

func (s *Store) CreateUser(_ context.Context, in core.UserInput) (string, error) {
	if _, err := s.session.RequireAdmin(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Password) == "" {
		return "", core.ErrMissingCredentials
	}
	acc, err := store.NewAccount(in)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.User.Username]; exists {
		return "", core.ErrUserExists
	}
	s.accounts[acc.User.Username] = acc
	return "User created successfully", nil
}

func (s *Store) UpdateUser(_ context.Context, username string, in core.UserInput) (string, error) {
	if _, err := s.session.RequireAdmin(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return "", core.ErrUserNotFound
	}
	acc, err := acc.Apply(in)
	if err != nil {
		return "", err
	}
	s.accounts[username] = acc
	return "User updated successfully", nil
}

func (s *Store) DeleteUser(_ context.Context, username string) (string, error) {
	me, err := s.session.RequireAdmin()
	if err != nil {
		return "", err
	}
	if me.Username == username {
		return "", &store.APIError{Status: 400, Message: "Failed to delete user. User may not exist or cannot be deleted."}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; !ok {
		return "", core.ErrUserNotFound
	}
	delete(s.accounts, username)
	return "User deleted successfully", nil
}

func (s *Store) ResetPassword(_ context.Context, username, newPassword string) (string, error) {
	if _, err := s.session.RequireAdmin(); err != nil {
		return "", err
	}
	if strings.TrimSpace(newPassword) == "" {
		return "", &store.APIError{Status: 400, Message: "New password is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return "", core.ErrUserNotFound
	}
	acc, err := acc.Apply(core.UserInput{Password: newPassword})
	if err != nil {
		return "", err
	}
	s.accounts[username] = acc
	return "Password reset successfully", nil
}

func (s *Store) ChangePassword(_ context.Context, change core.PasswordChange) (string, error) {
	me, err := s.session.Current()
	if err != nil {
		return "", err
	}
	if err := change.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[me.Username]
	if !ok || !store.CheckPassword(acc.PasswordHash, change.CurrentPassword) {
		return "", &store.APIError{Status: 400, Message: "Failed to change password. Current password may be incorrect."}
	}
	acc, err = acc.Apply(core.UserInput{Password: change.NewPassword})
	if err != nil {
		return "", err
	}
	s.accounts[me.Username] = acc
	return "Password changed successfully", nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !slices.Contains(out, line) {
			out = append(out, line)
		}
	}
	return out
}
