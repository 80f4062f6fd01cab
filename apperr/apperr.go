package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal         = "internal"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeCSRF             = "csrf_mismatch"
	CodeRateLimited      = "rate_limited"
	CodeUnavailable      = "unavailable"
)

// Error represents a structured application error.
//
// Message is shown to callers; Cause is only logged.
type Error struct {
	Code    string
	Status  int
	Message string
	Cause   error
}

// New creates a new Error.
func New(code string, status int, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

// Unwrap returns the root cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// As extracts an *Error if present.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Internal builds a 500 error.
func Internal(message string, cause error) *Error {
	return New(CodeInternal, http.StatusInternalServerError, message, cause)
}

// NotFound builds a 404 error.
func NotFound(message string, cause error) *Error {
	return New(CodeNotFound, http.StatusNotFound, message, cause)
}

// MethodNotAllowed builds a 405 error.
func MethodNotAllowed(message string, cause error) *Error {
	return New(CodeMethodNotAllowed, http.StatusMethodNotAllowed, message, cause)
}

// BadRequest builds a 400 error.
func BadRequest(message string, cause error) *Error {
	return New(CodeBadRequest, http.StatusBadRequest, message, cause)
}

// Unauthorized builds a 401 error.
func Unauthorized(message string, cause error) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, message, cause)
}

// Forbidden builds a 403 error.
func Forbidden(message string, cause error) *Error {
	return New(CodeForbidden, http.StatusForbidden, message, cause)
}

// CSRF builds a 403 error for anti-forgery failures.
func CSRF(message string, cause error) *Error {
	return New(CodeCSRF, http.StatusForbidden, message, cause)
}

// RateLimited builds a 429 error.
func RateLimited(message string, cause error) *Error {
	return New(CodeRateLimited, http.StatusTooManyRequests, message, cause)
}

// Unavailable builds a 503 error.
func Unavailable(message string, cause error) *Error {
	return New(CodeUnavailable, http.StatusServiceUnavailable, message, cause)
}
