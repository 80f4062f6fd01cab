package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTypeAccess is the token type accepted for API authentication.
	TokenTypeAccess = "access"
	// TokenTypeRefresh is issued for token renewal and never authenticates a request.
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownKey indicates a kid header that matches no configured key.
	ErrUnknownKey = errors.New("unknown signing key")
	// errMissingClaims indicates a structurally valid token lacking sub, type or iat.
	errMissingClaims = errors.New("required claims missing")
)

// Claims are the verified contents of a bearer token.
type Claims struct {
	SubjectID string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Issuer and Audience are optional registered claims.
	Issuer   string
	Audience string
}

// TokenVerifier validates a bearer credential. Implementations have no side
// effects and return an error wrapping ErrInvalidToken on any failure.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

type tokenClaims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 JWT tokens against a key set.
type JWTVerifier struct {
	Keys     JWTKeySet
	Issuer   string
	Audience string
	Leeway   time.Duration
	Now      func() time.Time
}

// NewJWTVerifier creates a verifier for a single shared secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{Keys: JWTKeySet{Primary: JWTKey{Secret: secret}}}
}

// Verify checks signature, expiry and required claims. The clock is read
// once so every time-based check in a call sees the same instant.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Claims, error) {
	if v == nil || len(v.Keys.Keys()) == 0 {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidKey)
	}
	if token == "" {
		return Claims{}, ErrInvalidToken
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if v.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.Leeway))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}

	parsed := &tokenClaims{}
	if _, err := jwt.NewParser(options...).ParseWithClaims(token, parsed, v.keyFunc); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if parsed.Subject == "" || parsed.Type == "" || parsed.IssuedAt == nil || parsed.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, errMissingClaims)
	}

	claims := Claims{
		SubjectID: parsed.Subject,
		TokenType: parsed.Type,
		IssuedAt:  parsed.IssuedAt.Time,
		ExpiresAt: parsed.ExpiresAt.Time,
		Issuer:    parsed.Issuer,
	}
	if len(parsed.Audience) > 0 {
		claims.Audience = parsed.Audience[0]
	}
	return claims, nil
}

// keyFunc selects the key by kid when present; otherwise every configured
// key is tried, which keeps tokens signed before a rotation valid.
func (v *JWTVerifier) keyFunc(token *jwt.Token) (any, error) {
	if kid, _ := token.Header["kid"].(string); kid != "" {
		key, ok := v.Keys.Lookup(kid)
		if !ok {
			return nil, ErrUnknownKey
		}
		return key.Secret, nil
	}

	keys := v.Keys.Keys()
	set := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(keys))}
	for _, key := range keys {
		set.Keys = append(set.Keys, key.Secret)
	}
	return set, nil
}
