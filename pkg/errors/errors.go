// Package errors carries the typed error taxonomy the storefront API speaks.
// Every service returns an *Error tagged with a Code; the response layer maps
// the code to an HTTP status and a client-safe message via MetadataFor.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code names an error category on the wire.
type Code string

const (
	// CodeValidation covers malformed input: bad pricing fields for a
	// category, unit types on book cart lines, out-of-range ratings.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeUnauthorized means no usable session cookie or bearer token.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeForbidden means the caller is authenticated but not allowed:
	// another user's order, a non-admin on the back office.
	CodeForbidden Code = "FORBIDDEN"
	CodeNotFound  Code = "NOT_FOUND"
	// CodeConflict is a uniqueness clash (duplicate email/phone, spent
	// verification code); CodeStateConflict is a lifecycle violation
	// (cancelling a delivered order, reverting paid to pending).
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	// CodeDependency marks failures of postgres, redis, or SMTP.
	CodeDependency Code = "DEPENDENCY_ERROR"
)

// Metadata is the response-layer view of a code. PublicMessage is the
// fallback shown when the service message is not client-safe;
// DetailsAllowed gates whether Error details reach the envelope.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var codeTable = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, false, "invalid request", true},
	CodeUnauthorized:  {http.StatusUnauthorized, false, "sign in required", false},
	CodeForbidden:     {http.StatusForbidden, false, "not allowed", false},
	CodeNotFound:      {http.StatusNotFound, false, "not found", false},
	CodeConflict:      {http.StatusConflict, false, "already exists", false},
	CodeStateConflict: {http.StatusUnprocessableEntity, false, "conflicts with current state", true},
	CodeIdempotency:   {http.StatusConflict, false, "idempotency key already used", true},
	CodeRateLimit:     {http.StatusTooManyRequests, false, "too many attempts", false},
	CodeInternal:      {http.StatusInternalServerError, true, "something went wrong", false},
	CodeDependency:    {http.StatusServiceUnavailable, true, "service temporarily unavailable", true},
}

// MetadataFor resolves a code's metadata; unknown codes degrade to internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := codeTable[code]; ok {
		return meta
	}
	return codeTable[CodeInternal]
}

// Error is the one error type that crosses service boundaries. The message
// is written for API clients; the cause chain stays server-side for logs.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and client message to an underlying cause.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails adds structured context (field errors, health check results)
// that the response layer may expose when the code permits.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As pulls the typed error out of a chain, or nil when there is none.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
