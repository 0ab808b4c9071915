package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindNetwork    Kind = "network"
	KindUnknown    Kind = "unknown"
)

// Error is the single error type returned by the client and every domain service.
// Status is the HTTP status when one was received (0 for transport failures).
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrServer     = &Error{Kind: KindServer}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrUnknown    = &Error{Kind: KindUnknown}
)

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels (no message) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// NotFound builds a NotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Validation builds a ValidationError; used for both client pre-flight checks and 400 responses.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Server builds a ServerError.
func Server(status int, message string) *Error {
	return &Error{Kind: KindServer, Status: status, Message: message}
}

// Network builds a NetworkError wrapping the transport failure.
func Network(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "Unable to connect to server. Please check your connection.",
		Err:     err,
	}
}

// Unknown wraps anything that does not fit the other kinds.
func Unknown(status int, message string, cause error) *Error {
	return &Error{Kind: KindUnknown, Status: status, Message: message, Err: cause}
}

// FromStatus maps an HTTP status and backend message onto the taxonomy.
func FromStatus(status int, message string) *Error {
	switch {
	case status == http.StatusNotFound:
		return NotFound(message)
	case status == http.StatusBadRequest:
		return Validation(message)
	case status >= 500:
		return Server(status, message)
	default:
		return Unknown(status, message, nil)
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Refine keeps err's kind and status but replaces its message. Non-client errors become Unknown.
func Refine(err error, message string) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: apiErr.Kind, Status: apiErr.Status, Message: message, Err: apiErr}
	}
	return Unknown(0, message, err)
}

// AsError normalizes any error into *Error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Unknown(0, err.Error(), err)
}
