package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/identity"
)

// DefaultTimeout bounds token verification plus identity lookup.
const DefaultTimeout = 2 * time.Second

// Authenticator resolves a bearer token into an active principal.
type Authenticator struct {
	Verifier   TokenVerifier
	Identities identity.Lookup
	// TokenType is the accepted token type; TokenTypeAccess when empty.
	TokenType string
	// Timeout is the budget for verification and lookup; DefaultTimeout when zero.
	Timeout time.Duration
}

// NewAuthenticator builds an authenticator for access tokens.
func NewAuthenticator(verifier TokenVerifier, identities identity.Lookup) *Authenticator {
	return &Authenticator{Verifier: verifier, Identities: identities}
}

// Authenticate implements bulwark.Authenticator. Every failure wraps one of
// ErrMissingOrInvalidToken, ErrWrongTokenType or ErrPrincipalUnavailable.
func (a *Authenticator) Authenticate(ctx *bulwark.Context) (*bulwark.Principal, error) {
	if ctx == nil || ctx.Request == nil {
		return nil, ErrMissingOrInvalidToken
	}
	return a.AuthenticateRequest(ctx.Request)
}

// AuthenticateRequest authenticates a raw request.
func (a *Authenticator) AuthenticateRequest(r *http.Request) (*bulwark.Principal, error) {
	if a == nil || a.Verifier == nil || a.Identities == nil {
		return nil, fmt.Errorf("%w: authenticator not configured", ErrPrincipalUnavailable)
	}

	token := extractToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, ErrMissingOrInvalidToken
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	claims, err := withinBudget(ctx, func(ctx context.Context) (Claims, error) {
		return a.Verifier.Verify(ctx, token)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingOrInvalidToken, err)
	}

	expected := a.TokenType
	if expected == "" {
		expected = TokenTypeAccess
	}
	if claims.TokenType != expected {
		return nil, ErrWrongTokenType
	}

	record, err := withinBudget(ctx, func(ctx context.Context) (identity.Record, error) {
		return a.Identities.Find(ctx, claims.SubjectID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrincipalUnavailable, err)
	}

	principal := &bulwark.Principal{ID: record.ID, Role: record.Role, Status: record.Status}
	if !principal.Active() {
		return nil, fmt.Errorf("%w: status %q", ErrPrincipalUnavailable, record.Status)
	}
	return principal, nil
}

// withinBudget runs call and gives up when ctx expires, even if call ignores
// cancellation. The call's goroutine finishes in the background.
func withinBudget[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := call(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("budget exceeded: %w", ctx.Err())
		}
		return zero, ctx.Err()
	}
}

// extractToken accepts only "Bearer <token>"; the scheme is case-insensitive.
func extractToken(value string) string {
	value = strings.TrimSpace(value)
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	token = strings.TrimSpace(token)
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
