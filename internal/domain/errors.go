package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function;
// the websocket layer surfaces them to the offending connection only.
var (
	ErrNotFound           = errors.New("no active queue entry found")
	ErrDuplicateEntry     = errors.New("patron is already in the queue")
	ErrAccessDenied       = errors.New("access denied")
	ErrAuthentication     = errors.New("authentication failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session has expired")
)

// ValidationError reports the first request field that failed validation.
// User-correctable: maps to a 4xx response with the field name attached.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
