package core

import (
	"errors"
	"strings"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var (
	ErrMissingCredentials = errors.New("Please enter both username and password")
	ErrPasswordMismatch   = errors.New("Passwords do not match")
	ErrAccessDenied       = errors.New("Access denied")
	ErrUserNotFound       = errors.New("User not found")
	ErrUserExists         = errors.New("Username already exists")
	ErrInvalidLogin       = errors.New("Invalid username or password")
)

// User is an account known to the backend.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// Admin reports whether the user may manage other accounts.
func (u User) Admin() bool {
	return u.IsAdmin || strings.EqualFold(u.Role, RoleAdmin)
}

// Credentials are submitted to the login endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate requires both fields.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Registration is a self-service signup request.
type Registration struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	FullName        string `json:"fullName,omitempty"`
	Email           string `json:"email,omitempty"`
}

// Validate checks the form locally before anything is sent.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return ErrMissingCredentials
	}
	if r.ConfirmPassword != "" && r.ConfirmPassword != r.Password {
		return ErrPasswordMismatch
	}
	return nil
}

// UserInput is used by administrators to create or edit accounts.
type UserInput struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// PasswordChange is submitted by a user changing their own password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"-"`
}

// Validate checks the form locally before anything is sent.
func (p PasswordChange) Validate() error {
	if p.CurrentPassword == "" || p.NewPassword == "" {
		return errors.New("Please enter the current and the new password")
	}
	if p.ConfirmPassword != "" && p.ConfirmPassword != p.NewPassword {
		return ErrPasswordMismatch
	}
	return nil
}
