// Package commands dispatches dashboard actions by name. Every handler's
// failure is turned into a Result so nothing escapes an action unhandled.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/state"
	"billtracker/internal/store"
)

// Level is the severity of the notification shown for a Result.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MsgSessionExpired is shown when the backend session is gone.
const MsgSessionExpired = "Your session has expired. Please log in again."

// Result is the outcome of an action.
type Result struct {
	Action  string `json:"action"`
	Level   Level  `json:"level"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	// Unauthorized asks the caller to send the user back to the login page.
	Unauthorized bool `json:"unauthorized,omitempty"`
	// Reloaded is set when the action refreshed the state.
	Reloaded bool `json:"reloaded,omitempty"`
}

// OK reports whether the action succeeded, possibly with a warning.
func (r Result) OK() bool {
	return r.Level == LevelSuccess || r.Level == LevelInfo || r.Level == LevelWarning
}

// Upload is a file submitted with an action.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Input is the payload of an action: form or JSON values plus an optional file.
type Input struct {
	Values url.Values
	File   *Upload
}

// NewInput wraps values.
func NewInput(values url.Values) Input {
	if values == nil {
		values = url.Values{}
	}
	return Input{Values: values}
}

// Get returns a trimmed value.
func (in Input) Get(key string) string {
	return strings.TrimSpace(in.Values.Get(key))
}

// Int returns a positive integer value or 0.
func (in Input) Int(key string) int {
	n, err := strconv.Atoi(in.Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Handler runs one action.
type Handler func(ctx context.Context, in Input) (Result, error)

// Registry maps action names to handlers.
type Registry struct {
	handlers map[string]Handler
	state    *state.Store
	logger   *log.Logger
}

// NewRegistry returns an empty registry. When st is not nil an unauthorized
// outcome clears it.
func NewRegistry(st *state.Store, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Registry{
		handlers: make(map[string]Handler),
		state:    st,
		logger:   logger.WithComponent(log.ComponentCommands),
	}
}

// Register adds or replaces a handler.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Actions lists registered action names, sorted.
func (r *Registry) Actions() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an action is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Dispatch runs an action and always returns a Result.
func (r *Registry) Dispatch(ctx context.Context, name string, in Input) (res Result) {
	start := time.Now()
	h, ok := r.handlers[name]
	if !ok {
		return Result{Action: name, Level: LevelError, Message: fmt.Sprintf("Unknown action: %s", name)}
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "Action panicked",
				log.FieldAction, name,
				log.FieldError, fmt.Sprint(p))
			res = Result{Action: name, Level: LevelError, Message: "An unexpected error occurred"}
		}
	}()

	res, err := h(ctx, in)
	res.Action = name
	if err != nil {
		res = r.failure(ctx, name, err)
	} else if res.Level == "" {
		res.Level = LevelSuccess
	}

	r.logger.InfoContext(ctx, "Action handled",
		log.FieldAction, name,
		"level", string(res.Level),
		log.FieldDuration, time.Since(start).Milliseconds())
	return res
}

// failure converts err into a user-facing Result.
func (r *Registry) failure(ctx context.Context, name string, err error) Result {
	res := Result{Action: name, Level: LevelError, Message: Message(err)}

	var (
		verr    *core.ValidationError
		apiErr  *store.APIError
		content *store.UnexpectedContentError
	)
	switch {
	case store.IsUnauthorized(err):
		res.Unauthorized = true
		res.Message = MsgSessionExpired
		if r.state != nil {
			r.state.Clear()
		}
		r.logger.WarnContext(ctx, "Session expired", log.FieldAction, name)
	case errors.As(err, &verr):
		r.logger.DebugContext(ctx, "Action rejected by validation",
			log.FieldAction, name,
			log.FieldError, err)
	case errors.As(err, &apiErr):
		r.logger.WarnContext(ctx, "Backend rejected action",
			log.FieldAction, name,
			log.FieldStatusCode, apiErr.Status,
			log.FieldError, apiErr.Message)
	case errors.As(err, &content):
		r.logger.ErrorContext(ctx, "Backend returned unexpected content",
			log.FieldAction, name,
			log.FieldPath, content.Path,
			log.FieldStatusCode, content.Status)
	default:
		r.logger.ErrorContext(ctx, "Action failed",
			log.FieldAction, name,
			log.FieldError, err)
	}
	return res
}

// Message is the text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var uploadErr *store.UploadError
	switch {
	case store.IsUnauthorized(err):
		return MsgSessionExpired
	case errors.Is(err, store.ErrUploadTimeout):
		return store.ErrUploadTimeout.Error()
	case errors.As(err, &uploadErr):
		return uploadErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	}
	return err.Error()
}
