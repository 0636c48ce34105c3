// Package backend builds the store.Backend the dashboard talks to from the
// application configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"billtracker/internal/config"
	"billtracker/internal/core"
	"billtracker/internal/store"
)

// Kind names a backend implementation.
type Kind string

const (
	// KindREST talks to the remote bill service over HTTP.
	KindREST Kind = "rest"
	// KindSQLite keeps bills in a local SQLite file.
	KindSQLite Kind = "sqlite"
	// KindMemory keeps bills in process, seeded from a data directory.
	KindMemory Kind = "memory"
)

// Kinds lists the supported backends.
func Kinds() []Kind {
	return []Kind{KindREST, KindSQLite, KindMemory}
}

// ParseKind accepts a DATA_BACKEND value.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(Kinds(), k) {
		names := lo.Map(Kinds(), func(k Kind, _ int) string { return string(k) })
		return "", fmt.Errorf("unknown backend %q, expected one of %s", s, strings.Join(names, ", "))
	}
	return k, nil
}

// Result is a created backend with the function that releases it.
type Result struct {
	Backend store.Backend
	Cleanup func() error
}

// Factory creates backends.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*Result, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind Kind

	// rest
	BaseURL        string
	RequestTimeout time.Duration
	BlobTimeout    time.Duration
	RetryMax       int

	// sqlite and memory
	SQLiteDBPath  string
	DataDirectory string
	Admin         core.UserInput

	// bills-changed events, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig maps the application configuration onto a backend Config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	kind, err := ParseKind(app.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Kind:           kind,
		BaseURL:        app.BackendBaseURL,
		RequestTimeout: app.RequestTimeout,
		BlobTimeout:    app.BlobTimeout,
		RetryMax:       app.HTTPRetryMax,
		SQLiteDBPath:   app.SQLiteDBPath,
		DataDirectory:  app.DataDir,
		Admin: core.UserInput{
			Username: app.BackendUsername,
			Password: app.BackendPassword,
		},
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
	}, nil
}

// Validate checks the settings the selected kind needs.
func (c Config) Validate() error {
	switch c.Kind {
	case KindREST:
		if c.BaseURL == "" {
			return errors.New("rest backend needs BACKEND_BASE_URL")
		}
	case KindSQLite:
		if c.SQLiteDBPath == "" {
			return errors.New("sqlite backend needs SQLITE_DB_PATH")
		}
	case KindMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Kind)
	}
	return nil
}
