package gateway

import (
	"context"
	"errors"
	"net/http"

	gocache "github.com/patrickmn/go-cache"

	"billtracker/internal/core"
)

type loginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    core.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds core.Credentials) (core.User, error) {
	return c.login(ctx, "/api/auth/login", creds)
}

// LoginAlt uses the alternate endpoint kept for containers that mangle the
// primary one.
func (c *Client) LoginAlt(ctx context.Context, creds core.Credentials) (core.User, error) {
	return c.login(ctx, "/api/auth/login-alt", creds)
}

func (c *Client) login(ctx context.Context, path string, creds core.Credentials) (core.User, error) {
	if err := creds.Validate(); err != nil {
		return core.User{}, err
	}
	var res loginResponse
	err := c.call(ctx, http.MethodPost, path, creds, &res)
	if errors.Is(err, ErrUnauthorized) {
		return core.User{}, core.ErrInvalidLogin
	}
	if err != nil {
		return core.User{}, err
	}
	c.probe.Set(probeKey, res.User, gocache.DefaultExpiration)
	c.logger.InfoContext(ctx, "Logged in to backend", "username", res.User.Username, "admin", res.User.Admin())
	return res.User, nil
}

func (c *Client) Register(ctx context.Context, reg core.Registration) (string, error) {
	if err := reg.Validate(); err != nil {
		return "", err
	}
	var env envelope
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", reg, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

// Logout ends the backend session. Local session state is dropped even when
// the backend cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.resetSession()
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

// CurrentUser asks the backend who is logged in. Positive answers are cached
// briefly so page renders do not probe on every request.
func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	if cached, ok := c.probe.Get(probeKey); ok {
		return cached.(core.User), nil
	}
	var u core.User
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return core.User{}, err
	}
	c.probe.Set(probeKey, u, gocache.DefaultExpiration)
	return u, nil
}

// ForgetProbe drops the cached session probe so the next CurrentUser asks
// the backend.
func (c *Client) ForgetProbe() {
	c.probe.Delete(probeKey)
}
