package gateway

import (
	"context"
	"net/http"
	"net/url"

	"billtracker/internal/core"
)

func (c *Client) ListUsers(ctx context.Context) ([]core.User, error) {
	var users []core.User
	if err := c.call(ctx, http.MethodGet, "/api/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, in core.UserInput) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/admin/users", in)
}

func (c *Client) UpdateUser(ctx context.Context, username string, in core.UserInput) (string, error) {
	return c.message(ctx, http.MethodPut, "/api/admin/users/"+url.PathEscape(username), in)
}

func (c *Client) DeleteUser(ctx context.Context, username string) (string, error) {
	return c.message(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(username), nil)
}

func (c *Client) ResetPassword(ctx context.Context, username, newPassword string) (string, error) {
	body := map[string]string{"newPassword": newPassword}
	return c.message(ctx, http.MethodPost, "/api/admin/users/"+url.PathEscape(username)+"/reset-password", body)
}

func (c *Client) ChangePassword(ctx context.Context, change core.PasswordChange) (string, error) {
	if err := change.Validate(); err != nil {
		return "", err
	}
	return c.message(ctx, http.MethodPost, "/api/user/change-password", change)
}

// message performs a call whose answer is a {message} acknowledgement.
func (c *Client) message(ctx context.Context, method, path string, in any) (string, error) {
	var env envelope
	if err := c.call(ctx, method, path, in, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}
