package commands

import (
	"context"
	"fmt"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

// Login authenticates, retrying on the alternate endpoint when the primary
// one fails for reasons unrelated to the credentials, then loads the state.
func (c *Commands) Login(ctx context.Context, in Input) (Result, error) {
	creds := core.Credentials{Username: in.Get("username"), Password: in.Values.Get("password")}
	if err := creds.Validate(); err != nil {
		return Result{}, err
	}

	user, err := c.backend.Login(ctx, creds)
	if err != nil && isTransportFailure(err) {
		c.logger.WarnContext(ctx, "Primary login failed, trying alternate endpoint",
			log.FieldUsername, creds.Username,
			log.FieldError, err)
		user, err = c.backend.LoginAlt(ctx, creds)
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Welcome, %s", displayName(user)),
		Data:    user,
	}
	return c.afterWrite(ctx, res)
}

// Register creates an account after checking the form locally.
func (c *Commands) Register(ctx context.Context, in Input) (Result, error) {
	reg := core.Registration{
		Username:        in.Get("username"),
		Password:        in.Values.Get("password"),
		ConfirmPassword: in.Values.Get("confirmPassword"),
		FullName:        in.Get("fullName"),
		Email:           in.Get("email"),
	}
	if err := reg.Validate(); err != nil {
		return Result{}, err
	}
	msg, err := c.backend.Register(ctx, reg)
	if err != nil {
		return Result{}, err
	}
	return Result{Level: LevelSuccess, Message: orDefault(msg, "Registration successful. Please log in.")}, nil
}

// Logout ends the session. Local state is cleared even when the backend
// call fails.
func (c *Commands) Logout(ctx context.Context, _ Input) (Result, error) {
	if err := c.backend.Logout(ctx); err != nil {
		c.logger.WarnContext(ctx, "Backend logout failed", log.FieldError, err)
	}
	if c.state != nil {
		c.state.Clear()
	}
	return Result{Level: LevelSuccess, Message: "Logged out", Unauthorized: true}, nil
}

// CurrentUser probes the session.
func (c *Commands) CurrentUser(ctx context.Context, _ Input) (Result, error) {
	u, err := c.backend.CurrentUser(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Level: LevelInfo, Data: u}, nil
}

func displayName(u core.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
