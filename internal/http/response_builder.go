// Package http serves the bill dashboard.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"billtracker/internal/commands"
)

// HX events raised by the dashboard.
const (
	EventNotification  = "show-notification"
	EventBillsChanged  = "bills:changed"
	EventConfigChanged = "config:changed"
	EventFormReset     = "form:reset"
	EventActionDone    = "action:done"
)

// NotificationType is the toast style app.js renders.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Notification is the show-notification payload.
type Notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

// NewNotification sets the display time from the type: errors and warnings
// stay five seconds, the rest three.
func NewNotification(t NotificationType, message string) Notification {
	d := 3000
	if t == NotificationError || t == NotificationWarning {
		d = 5000
	}
	return Notification{Type: t, Message: message, Duration: d}
}

// HTMXResponseBuilder assembles status, headers, HX-Trigger events and body.
type HTMXResponseBuilder struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
}

// NewHTMXResponse starts a 200 response.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		header: make(http.Header),
		events: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Trigger raises event on the client with detail as its payload. A later
// call for the same event replaces the detail.
func (b *HTMXResponseBuilder) Trigger(event string, detail any) *HTMXResponseBuilder {
	b.events[event] = detail
	return b
}

// TriggerBillsChanged tells listings and charts that snapshot version is
// current.
func (b *HTMXResponseBuilder) TriggerBillsChanged(version uint64) *HTMXResponseBuilder {
	return b.Trigger(EventBillsChanged, map[string]uint64{"version": version})
}

func (b *HTMXResponseBuilder) TriggerConfigChanged() *HTMXResponseBuilder {
	return b.Trigger(EventConfigChanged, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// Notify shows n as a toast.
func (b *HTMXResponseBuilder) Notify(n Notification) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, n)
}

// Redirect makes HTMX navigate to url.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

// JSON sets the body to the encoding of v. Encoding failures turn the
// response into a 500.
func (b *HTMXResponseBuilder) JSON(v any) *HTMXResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.status = http.StatusInternalServerError
		data = []byte(`{"error":"encoding failed"}`)
	}
	b.header.Set("Content-Type", "application/json")
	b.body = data
	return b
}

func (b *HTMXResponseBuilder) html(fragment string) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = []byte(fragment)
	return b
}

// Write sends the response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.events) > 0 {
		if events, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ResultResponse turns an action result into a response. The notification
// mirrors the result level; a result that refreshed the state raises
// bills:changed with the new snapshot version.
func ResultResponse(res commands.Result, version uint64) *HTMXResponseBuilder {
	b := NewHTMXResponse().JSON(res)
	if res.Message != "" {
		b.Notify(NewNotification(NotificationType(res.Level), res.Message))
	}
	if res.Reloaded {
		b.TriggerBillsChanged(version)
	}
	if res.OK() {
		b.Trigger(EventActionDone, map[string]string{"action": res.Action})
	}
	if res.Unauthorized {
		b.Redirect("/login")
	}
	return b
}

// ErrorResponse is an HTML error fragment with message escaped.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		html(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func BadGatewayError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
