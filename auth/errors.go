package auth

import "errors"

// Authentication failures.
var (
	ErrMissingOrInvalidToken = errors.New("missing or invalid token")
	ErrWrongTokenType        = errors.New("wrong token type")
	ErrPrincipalUnavailable  = errors.New("principal unavailable")
)

// Authorization failures.
var (
	// ErrNotAuthenticated means the authorization stage ran without a
	// principal attached, which is a route ordering error.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
)
