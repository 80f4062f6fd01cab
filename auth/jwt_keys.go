package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey indicates a missing signing key.
var ErrInvalidKey = errors.New("invalid signing key")

// JWTKey represents a signing key with an optional key ID.
type JWTKey struct {
	ID     string
	Secret []byte
}

// JWTKeySet supports signing and verifying with rotating keys.
type JWTKeySet struct {
	Primary  JWTKey
	Fallback []JWTKey
}

// Keys returns the full ordered key set, skipping empty secrets.
func (s JWTKeySet) Keys() []JWTKey {
	keys := make([]JWTKey, 0, 1+len(s.Fallback))
	if len(s.Primary.Secret) > 0 {
		keys = append(keys, s.Primary)
	}
	for _, key := range s.Fallback {
		if len(key.Secret) == 0 {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Lookup finds a key by ID.
func (s JWTKeySet) Lookup(id string) (JWTKey, bool) {
	if id == "" {
		return JWTKey{}, false
	}
	for _, key := range s.Keys() {
		if key.ID == id {
			return key, true
		}
	}
	return JWTKey{}, false
}

// Sign creates an HS256-signed token using the primary key.
func (s JWTKeySet) Sign(claims Claims) (string, error) {
	return SignHS256(s.Primary, claims)
}

// SignHS256 creates an HS256-signed JWT. Zero times are omitted from the
// payload. Token issuance belongs to the identity service; this exists for
// tests and local development.
func SignHS256(key JWTKey, claims Claims) (string, error) {
	if len(key.Secret) == 0 {
		return "", ErrInvalidKey
	}

	payload := tokenClaims{
		Type: claims.TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: claims.SubjectID,
			Issuer:  claims.Issuer,
		},
	}
	if !claims.IssuedAt.IsZero() {
		payload.IssuedAt = jwt.NewNumericDate(claims.IssuedAt)
	}
	if !claims.ExpiresAt.IsZero() {
		payload.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt)
	}
	if claims.Audience != "" {
		payload.Audience = jwt.ClaimStrings{claims.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	if key.ID != "" {
		token.Header["kid"] = key.ID
	}
	return token.SignedString(key.Secret)
}
