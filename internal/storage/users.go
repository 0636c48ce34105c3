package storage

import (
	"context"
	"fmt"
	"strings"

	"billtracker/internal/core"
	"billtracker/internal/store"
)

func (r *SQLiteRepository) insertAccount(ctx context.Context, acc store.Account) error {
	enabled := !acc.Disabled()
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (username, password_hash, role, full_name, email, enabled)
		VALUES (?, ?, ?, ?, ?, ?)`,
		acc.User.Username, acc.PasswordHash, acc.User.Role, acc.User.FullName, acc.User.Email, enabled)
	if isUniqueViolation(err) {
		return core.ErrUserExists
	}
	return err
}

func (r *SQLiteRepository) getAccount(ctx context.Context, username string) (store.Account, error) {
	var (
		acc     store.Account
		enabled bool
	)
	err := r.db.QueryRowContext(ctx, `SELECT username, password_hash, role, full_name, email, enabled
		FROM users WHERE username = ?`, username).
		Scan(&acc.User.Username, &acc.PasswordHash, &acc.User.Role, &acc.User.FullName, &acc.User.Email, &enabled)
	if isNoRows(err) {
		return acc, core.ErrUserNotFound
	}
	if err != nil {
		return acc, fmt.Errorf("get user %q: %w", username, err)
	}
	acc.User.IsAdmin = acc.User.Role == core.RoleAdmin
	acc.User.Enabled = &enabled
	return acc, nil
}

func (r *SQLiteRepository) saveAccount(ctx context.Context, acc store.Account) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, role = ?, full_name = ?, email = ?, enabled = ?
		WHERE username = ?`,
		acc.PasswordHash, acc.User.Role, acc.User.FullName, acc.User.Email, !acc.Disabled(), acc.User.Username)
	if err != nil {
		return fmt.Errorf("save user %q: %w", acc.User.Username, err)
	}
	return nil
}

func (r *SQLiteRepository) Login(ctx context.Context, creds core.Credentials) (core.User, error) {
	if err := creds.Validate(); err != nil {
		return core.User{}, err
	}
	acc, err := r.getAccount(ctx, strings.TrimSpace(creds.Username))
	if err != nil && err != core.ErrUserNotFound {
		return core.User{}, err
	}
	if err != nil || acc.Disabled() || !store.CheckPassword(acc.PasswordHash, creds.Password) {
		return core.User{}, core.ErrInvalidLogin
	}
	r.session.Set(acc.User)
	return acc.User, nil
}

func (r *SQLiteRepository) LoginAlt(ctx context.Context, creds core.Credentials) (core.User, error) {
	return r.Login(ctx, creds)
}

func (r *SQLiteRepository) Register(ctx context.Context, reg core.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", err
	}
	acc, err := store.NewAccount(core.UserInput{
		Username: reg.Username, Password: reg.Password, FullName: reg.FullName, Email: reg.Email,
	})
	if err != nil {
		return "", err
	}
	if err := r.insertAccount(ctx, acc); err != nil {
		return "", err
	}
	return "Registration successful", nil
}

func (r *SQLiteRepository) Logout(_ context.Context) error {
	r.session.Clear()
	return nil
}

func (r *SQLiteRepository) CurrentUser(_ context.Context) (core.User, error) {
	return r.session.Current()
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	if _, err := r.session.RequireAdmin(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT username, role, full_name, email, enabled FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := []core.User{}
	for rows.Next() {
		var (
			u       core.User
			enabled bool
		)
		if err := rows.Scan(&u.Username, &u.Role, &u.FullName, &u.Email, &enabled); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.IsAdmin = u.Role == core.RoleAdmin
		u.Enabled = &enabled
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, in core.UserInput) (string, error) {
	if _, err := r.session.RequireAdmin(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Password) == "" {
		return "", core.ErrMissingCredentials
	}
	acc, err := store.NewAccount(in)
	if err != nil {
		return "", err
	}
	if err := r.insertAccount(ctx, acc); err != nil {
		return "", err
	}
	return "User created successfully", nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, username string, in core.UserInput) (string, error) {
	if _, err := r.session.RequireAdmin(); err != nil {
		return "", err
	}
	acc, err := r.getAccount(ctx, username)
	if err != nil {
		return "", err
	}
	if acc, err = acc.Apply(in); err != nil {
		return "", err
	}
	if err := r.saveAccount(ctx, acc); err != nil {
		return "", err
	}
	return "User updated successfully", nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, username string) (string, error) {
	me, err := r.session.RequireAdmin()
	if err != nil {
		return "", err
	}
	if me.Username == username {
		return "", &store.APIError{Status: 400, Message: "Failed to delete user. User may not exist or cannot be deleted."}
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return "", fmt.Errorf("delete user %q: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", core.ErrUserNotFound
	}
	return "User deleted successfully", nil
}

func (r *SQLiteRepository) ResetPassword(ctx context.Context, username, newPassword string) (string, error) {
	if _, err := r.session.RequireAdmin(); err != nil {
		return "", err
	}
	if strings.TrimSpace(newPassword) == "" {
		return "", &store.APIError{Status: 400, Message: "New password is required"}
	}
	acc, err := r.getAccount(ctx, username)
	if err != nil {
		return "", err
	}
	if acc, err = acc.Apply(core.UserInput{Password: newPassword}); err != nil {
		return "", err
	}
	if err := r.saveAccount(ctx, acc); err != nil {
		return "", err
	}
	return "Password reset successfully", nil
}

func (r *SQLiteRepository) ChangePassword(ctx context.Context, change core.PasswordChange) (string, error) {
	me, err := r.session.Current()
	if err != nil {
		return "", err
	}
	if err := change.Validate(); err != nil {
		return "", err
	}
	acc, err := r.getAccount(ctx, me.Username)
	if err != nil || !store.CheckPassword(acc.PasswordHash, change.CurrentPassword) {
		return "", &store.APIError{Status: 400, Message: "Failed to change password. Current password may be incorrect."}
	}
	if acc, err = acc.Apply(core.UserInput{Password: change.NewPassword}); err != nil {
		return "", err
	}
	if err := r.saveAccount(ctx, acc); err != nil {
		return "", err
	}
	return "Password changed successfully", nil
}
