package store

import (
	"errors"
	"fmt"
)

// ErrUnauthorized means the session is missing or expired. Callers must drop
// their session state and send the user back to the login page.
var ErrUnauthorized = errors.New("unauthorized")

// ErrUploadTimeout is returned when a PDF upload exceeds the blob timeout.
var ErrUploadTimeout = errors.New("Upload timed out. Please try again with a smaller file or check your internet connection.")

// ErrPDFNotFound is returned when a stored PDF cannot be located.
var ErrPDFNotFound = errors.New("PDF not found")

// APIError carries an error reported by the backend, verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// UnexpectedContentError is returned when the backend answers with HTML where
// JSON was expected, usually a proxy error page or a missing endpoint.
type UnexpectedContentError struct {
	Status     int
	StatusText string
	Path       string
}

func (e *UnexpectedContentError) Error() string {
	return fmt.Sprintf("Server error: %d %s. Expected JSON but got HTML. Check if API endpoint '%s' is available.",
		e.Status, e.StatusText, e.Path)
}

// UploadError wraps any non-timeout PDF upload failure.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "Failed to upload PDF: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err means the session is gone.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
