package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"billtracker/internal/core"
)

var (
	errUserFieldsRequired     = errors.New("Please fill in all required fields")
	errPasswordFieldsRequired = errors.New("Please fill in all password fields")
	errNewPasswordMismatch    = errors.New("New passwords do not match")
)

// ListUsers returns every account. Administrators only.
func (c *Commands) ListUsers(ctx context.Context, _ Input) (Result, error) {
	users, err := c.backend.ListUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to load users list: %w", err)
	}
	return Result{Level: LevelInfo, Data: users}, nil
}

func userInput(in Input) core.UserInput {
	u := core.UserInput{
		Username: in.Get("username"),
		Password: in.Values.Get("password"),
		Role:     in.Get("role"),
		FullName: in.Get("fullName"),
		Email:    in.Get("email"),
	}
	if v := in.Get("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			enabled = v == "on"
		}
		u.Enabled = &enabled
	}
	return u
}

// CreateUser adds an account.
func (c *Commands) CreateUser(ctx context.Context, in Input) (Result, error) {
	u := userInput(in)
	if u.Username == "" || u.Password == "" {
		return Result{}, errUserFieldsRequired
	}
	msg, err := c.backend.CreateUser(ctx, u)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to add user: %w", err)
	}
	return Result{Level: LevelSuccess, Message: orDefault(msg, "User added successfully!")}, nil
}

// UpdateUser edits an account; blank fields are left unchanged.
func (c *Commands) UpdateUser(ctx context.Context, in Input) (Result, error) {
	u := userInput(in)
	if u.Username == "" {
		return Result{}, errUserFieldsRequired
	}
	msg, err := c.backend.UpdateUser(ctx, u.Username, u)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to update user: %w", err)
	}
	return Result{Level: LevelSuccess, Message: orDefault(msg, "User updated successfully!")}, nil
}

// DeleteUser removes an account.
func (c *Commands) DeleteUser(ctx context.Context, in Input) (Result, error) {
	username := in.Get("username")
	if username == "" {
		return Result{}, errUserFieldsRequired
	}
	msg, err := c.backend.DeleteUser(ctx, username)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to delete user: %w", err)
	}
	return Result{Level: LevelSuccess, Message: orDefault(msg, "User deleted successfully!")}, nil
}

// ResetPassword sets a new password for another account.
func (c *Commands) ResetPassword(ctx context.Context, in Input) (Result, error) {
	username := in.Get("username")
	pw, confirm := in.Values.Get("newPassword"), in.Values.Get("confirmPassword")
	if username == "" || pw == "" {
		return Result{}, errPasswordFieldsRequired
	}
	if confirm != "" && confirm != pw {
		return Result{}, core.ErrPasswordMismatch
	}
	msg, err := c.backend.ResetPassword(ctx, username, pw)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to reset password: %w", err)
	}
	return Result{Level: LevelSuccess, Message: orDefault(msg, "User password reset successfully!")}, nil
}

// ChangePassword changes the logged in user's own password.
func (c *Commands) ChangePassword(ctx context.Context, in Input) (Result, error) {
	change := core.PasswordChange{
		CurrentPassword: in.Values.Get("currentPassword"),
		NewPassword:     in.Values.Get("newPassword"),
		ConfirmPassword: in.Values.Get("confirmPassword"),
	}
	if change.CurrentPassword == "" || change.NewPassword == "" {
		return Result{}, errPasswordFieldsRequired
	}
	if err := change.Validate(); err != nil {
		if errors.Is(err, core.ErrPasswordMismatch) {
			return Result{}, errNewPasswordMismatch
		}
		return Result{}, err
	}
	msg, err := c.backend.ChangePassword(ctx, change)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to change password: %w", err)
	}
	return Result{Level: LevelSuccess, Message: orDefault(msg, "Password changed successfully!")}, nil
}
