package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/identity"
)

func newTestAuthenticator(t *testing.T, records ...identity.Record) (*Authenticator, JWTKey) {
	t.Helper()
	key := JWTKey{Secret: []byte("secret")}
	verifier := &JWTVerifier{Keys: JWTKeySet{Primary: key}, Now: fixedNow}
	return NewAuthenticator(verifier, identity.NewMemoryLookup(records...)), key
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthenticatorValid(t *testing.T) {
	authenticator, key := newTestAuthenticator(t, identity.Record{ID: "user-1", Role: "admin", Status: bulwark.StatusActive})
	token := mustSign(t, key, accessClaims("user-1"))

	ctx := bulwark.NewContext(httptest.NewRecorder(), bearerRequest(token), nil, nil)
	principal, err := authenticator.Authenticate(ctx)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.ID != "user-1" || principal.Role != "admin" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestAuthenticatorHeaderForms(t *testing.T) {
	authenticator, key := newTestAuthenticator(t, identity.Record{ID: "user-1", Role: "user", Status: bulwark.StatusActive})
	token := mustSign(t, key, accessClaims("user-1"))

	cases := []struct {
		header string
		ok     bool
	}{
		{"Bearer " + token, true},
		{"bearer " + token, true},
		{"BEARER   " + token, true},
		{"", false},
		{token, false},
		{"Basic " + token, false},
		{"Bearer", false},
		{"Bearer ", false},
		{"Bearer " + token + " extra", false},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		_, err := authenticator.AuthenticateRequest(req)
		if tc.ok && err != nil {
			t.Fatalf("header %q: unexpected error %v", tc.header, err)
		}
		if !tc.ok && !errors.Is(err, ErrMissingOrInvalidToken) {
			t.Fatalf("header %q: expected ErrMissingOrInvalidToken, got %v", tc.header, err)
		}
	}
}

func TestAuthenticatorRefreshTokenIsWrongType(t *testing.T) {
	authenticator, key := newTestAuthenticator(t, identity.Record{ID: "user-1", Role: "user", Status: bulwark.StatusActive})
	claims := accessClaims("user-1")
	claims.TokenType = TokenTypeRefresh
	token := mustSign(t, key, claims)

	_, err := authenticator.AuthenticateRequest(bearerRequest(token))
	if !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
	if errors.Is(err, ErrMissingOrInvalidToken) {
		t.Fatalf("wrong token type must not be reported as invalid token")
	}
}

func TestAuthenticatorExpiredToken(t *testing.T) {
	authenticator, key := newTestAuthenticator(t, identity.Record{ID: "user-1", Status: bulwark.StatusActive})
	claims := accessClaims("user-1")
	claims.ExpiresAt = testNow
	token := mustSign(t, key, claims)

	if _, err := authenticator.AuthenticateRequest(bearerRequest(token)); !errors.Is(err, ErrMissingOrInvalidToken) {
		t.Fatalf("expected ErrMissingOrInvalidToken, got %v", err)
	}
}

func TestAuthenticatorPrincipalUnavailable(t *testing.T) {
	authenticator, key := newTestAuthenticator(t,
		identity.Record{ID: "suspended", Role: "user", Status: "suspended"},
	)

	for _, subject := range []string{"suspended", "missing"} {
		token := mustSign(t, key, accessClaims(subject))
		if _, err := authenticator.AuthenticateRequest(bearerRequest(token)); !errors.Is(err, ErrPrincipalUnavailable) {
			t.Fatalf("subject %s: expected ErrPrincipalUnavailable, got %v", subject, err)
		}
	}
}

func TestAuthenticatorLookupFailureDegrades(t *testing.T) {
	key := JWTKey{Secret: []byte("secret")}
	down := identity.LookupFunc(func(context.Context, string) (identity.Record, error) {
		return identity.Record{}, errors.New("dial tcp: connection refused")
	})
	authenticator := NewAuthenticator(&JWTVerifier{Keys: JWTKeySet{Primary: key}, Now: fixedNow}, down)

	_, err := authenticator.AuthenticateRequest(bearerRequest(mustSign(t, key, accessClaims("user-1"))))
	if !errors.Is(err, ErrPrincipalUnavailable) {
		t.Fatalf("expected ErrPrincipalUnavailable, got %v", err)
	}
}

func TestAuthenticatorFailsClosedOnSlowLookup(t *testing.T) {
	key := JWTKey{Secret: []byte("secret")}
	release := make(chan struct{})
	defer close(release)

	slow := identity.LookupFunc(func(context.Context, string) (identity.Record, error) {
		<-release
		return identity.Record{ID: "user-1", Status: bulwark.StatusActive}, nil
	})
	authenticator := &Authenticator{
		Verifier:   &JWTVerifier{Keys: JWTKeySet{Primary: key}, Now: fixedNow},
		Identities: slow,
		Timeout:    20 * time.Millisecond,
	}

	start := time.Now()
	_, err := authenticator.AuthenticateRequest(bearerRequest(mustSign(t, key, accessClaims("user-1"))))
	if !errors.Is(err, ErrPrincipalUnavailable) {
		t.Fatalf("expected ErrPrincipalUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected bounded wait, took %v", elapsed)
	}
}

type blockingVerifier struct{ release chan struct{} }

func (v blockingVerifier) Verify(context.Context, string) (Claims, error) {
	<-v.release
	return Claims{}, nil
}

func TestAuthenticatorFailsClosedOnSlowVerifier(t *testing.T) {
	verifier := blockingVerifier{release: make(chan struct{})}
	defer close(verifier.release)

	authenticator := &Authenticator{
		Verifier:   verifier,
		Identities: identity.NewMemoryLookup(),
		Timeout:    20 * time.Millisecond,
	}
	if _, err := authenticator.AuthenticateRequest(bearerRequest("token")); !errors.Is(err, ErrMissingOrInvalidToken) {
		t.Fatalf("expected ErrMissingOrInvalidToken, got %v", err)
	}
}

func TestAuthenticatorNotConfigured(t *testing.T) {
	var authenticator *Authenticator
	if _, err := authenticator.AuthenticateRequest(bearerRequest("token")); !errors.Is(err, ErrPrincipalUnavailable) {
		t.Fatalf("expected ErrPrincipalUnavailable, got %v", err)
	}
}
