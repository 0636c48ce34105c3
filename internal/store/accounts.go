package store

import (
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"billtracker/internal/core"
)

// Account is a locally stored user of an embedded backend.
type Account struct {
	User         core.User
	PasswordHash string
}

// NewAccount hashes password and builds an enabled account.
func NewAccount(in core.UserInput) (Account, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role == "" {
		role = core.RoleUser
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	return Account{
		User: core.User{
			Username: strings.TrimSpace(in.Username),
			Role:     role,
			FullName: in.FullName,
			Email:    in.Email,
			IsAdmin:  role == core.RoleAdmin,
			Enabled:  &enabled,
		},
		PasswordHash: hash,
	}, nil
}

// Apply merges an edit into the account. Empty fields keep their value.
func (a Account) Apply(in core.UserInput) (Account, error) {
	if in.Role != "" {
		a.User.Role = strings.ToUpper(in.Role)
		a.User.IsAdmin = a.User.Role == core.RoleAdmin
	}
	if in.FullName != "" {
		a.User.FullName = in.FullName
	}
	if in.Email != "" {
		a.User.Email = in.Email
	}
	if in.Enabled != nil {
		enabled := *in.Enabled
		a.User.Enabled = &enabled
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return a, err
		}
		a.PasswordHash = hash
	}
	return a, nil
}

// Disabled reports whether the account has been switched off.
func (a Account) Disabled() bool {
	return a.User.Enabled != nil && !*a.User.Enabled
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a stored hash with a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Session remembers who is logged in to an embedded backend.
type Session struct {
	mu   sync.RWMutex
	user *core.User
}

// Set records a successful login.
func (s *Session) Set(u core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// Clear forgets the logged in user.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// Current returns the logged in user or ErrUnauthorized.
func (s *Session) Current() (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return core.User{}, ErrUnauthorized
	}
	return *s.user, nil
}

// RequireAdmin returns ErrAccessDenied unless an administrator is logged in.
func (s *Session) RequireAdmin() (core.User, error) {
	u, err := s.Current()
	if err != nil {
		return u, err
	}
	if !u.Admin() {
		return u, core.ErrAccessDenied
	}
	return u, nil
}
