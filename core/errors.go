package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the stable, machine readable discriminator of an Error.
// Servers may send kinds outside of the predefined set (422 and other 4xx
// responses carry their own error type), so it is an open string type.
type ErrorKind string

const (
	KindConnectionError        ErrorKind = "CONNECTION_ERROR"
	KindAuthenticationRequired ErrorKind = "AUTHENTICATION_REQUIRED"
	KindNotAuthorized          ErrorKind = "NOT_AUTHORIZED"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindRequestTooLarge        ErrorKind = "REQUEST_TOO_LARGE"
	KindUnprocessableEntity    ErrorKind = "UNPROCESSABLE_ENTITY"
	KindTooManyRequests        ErrorKind = "TOO_MANY_REQUESTS"
	KindServerError            ErrorKind = "SERVER_ERROR"
	KindServiceUnavailable     ErrorKind = "SERVICE_UNAVAILABLE"
	KindUnexpectedError        ErrorKind = "UNEXPECTED_ERROR"
	KindInvalidParameters      ErrorKind = "INVALID_PARAMETERS"
)

// Kind sentinels for errors.Is matching, e.g. errors.Is(err, core.ErrNotFound).
var (
	ErrConnection             = &Error{Kind: KindConnectionError}
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrNotAuthorized          = &Error{Kind: KindNotAuthorized}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrRequestTooLarge        = &Error{Kind: KindRequestTooLarge}
	ErrUnprocessableEntity    = &Error{Kind: KindUnprocessableEntity}
	ErrTooManyRequests        = &Error{Kind: KindTooManyRequests}
	ErrServerError            = &Error{Kind: KindServerError}
	ErrServiceUnavailable     = &Error{Kind: KindServiceUnavailable}
	ErrUnexpected             = &Error{Kind: KindUnexpectedError}
)

// ErrMissingApiKey is returned by Config.Validate when no API key could be resolved.
var ErrMissingApiKey = errors.New("an API key is required to connect to Airtable")

// Error is the typed failure returned by every request.
// It is built once at the failure site and never mutated afterwards.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int   // zero when no HTTP response was received
	Err        error // underlying transport failure, if any
}

func newError(kind ErrorKind, message string, statusCode int) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusCode}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("(")
	sb.WriteString(string(e.Kind))
	sb.WriteString(")")
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf("[Http code %d]", e.StatusCode))
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func IsAirtableError(err error) bool {
	var atErr *Error
	return errors.As(err, &atErr)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var atErr *Error
	if !errors.As(err, &atErr) {
		return false
	}
	return atErr.Kind == kind
}

// IgnoreStatusCodes returns nil when err carries one of the given status codes.
func IgnoreStatusCodes(err error, codes ...int) error {
	if ExpectStatusCodes(err, codes...) {
		return nil
	}
	return err
}

func ExpectStatusCodes(err error, codes ...int) bool {
	var atErr *Error
	if !errors.As(err, &atErr) {
		return false
	}
	for _, code := range codes {
		if atErr.StatusCode == code {
			return true
		}
	}
	return false
}

// InvalidParametersError lists every validator failure of a select call.
type InvalidParametersError struct {
	Operation string
	Errors    []string
}

func (e *InvalidParametersError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Airtable: invalid parameters for `%s`:", e.Operation))
	for _, msg := range e.Errors {
		sb.WriteString("\n  * ")
		sb.WriteString(msg)
	}
	return sb.String()
}

// Is lets callers branch on the INVALID_PARAMETERS kind like any other failure.
func (e *InvalidParametersError) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == KindInvalidParameters
}

func newConnectionError(err error) *Error {
	return &Error{
		Kind:    KindConnectionError,
		Message: err.Error(),
		Err:     err,
	}
}
