package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain failure matches exactly one of them with errors.Is.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCode indicates a QR identifier that was never generated by the system.
	ErrInvalidCode = errors.New("invalid qr code")
	// ErrConflict indicates the request collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDataInconsistency indicates stored state that correct operation can never produce.
	ErrDataInconsistency = errors.New("data inconsistency")
	// ErrInternal wraps persistence or rendering failures.
	ErrInternal = errors.New("internal error")
	// ErrUnauthorized indicates a missing or expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// Error carries a kind, a message safe to show to API callers and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an Error of the given kind.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf returns an ErrValidation error.
func Validationf(format string, args ...any) *Error {
	return NewError(ErrValidation, format, args...)
}

// Conflictf returns an ErrConflict error.
func Conflictf(format string, args ...any) *Error {
	return NewError(ErrConflict, format, args...)
}

// NotFoundf returns an ErrNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return NewError(ErrNotFound, format, args...)
}

// InvalidCodef returns an ErrInvalidCode error.
func InvalidCodef(format string, args ...any) *Error {
	return NewError(ErrInvalidCode, format, args...)
}

// Inconsistencyf returns an ErrDataInconsistency error.
func Inconsistencyf(format string, args ...any) *Error {
	return NewError(ErrDataInconsistency, format, args...)
}

// Internal wraps err as ErrInternal with context.
func Internal(err error, message string) *Error {
	return &Error{Kind: ErrInternal, Message: message, Err: err}
}

// UserSafeMessage returns a message suitable for API responses.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "authentication required"
	case errors.Is(err, ErrForbidden):
		return "permission denied"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "invalid csrf token"
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	}
	return "internal server error"
}
