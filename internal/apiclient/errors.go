package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("transport failure")

// ErrDecode marks a response body that did not match the envelope.
var ErrDecode = errors.New("decode response")

// bannedMarker is how the API flags a banned account inside a 403 message.
const bannedMarker = "banned"

// APIError is an HTTP error response carrying the API's structured message.
type APIError struct {
	Status  int
	Message string
	Code    string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Banned reports whether the response signals a banned account.
func (e *APIError) Banned() bool {
	return e.Status == http.StatusForbidden && strings.Contains(e.Message, bannedMarker)
}

// StatusCode returns the HTTP status behind err, or 0 when err carries none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the API's error message, falling back to fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsBanned reports whether err is a 403 whose message marks a banned account.
func IsBanned(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Banned()
}
