// Package auth verifies bearer tokens and carries the authenticated owner
// identity through the request context. Token issuance belongs to the
// external identity service; only verification happens here.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Static errors for token verification.
var (
	// ErrSecretRequired is returned when no signing secret is provided.
	ErrSecretRequired = errors.New("auth: secret is required")
	// ErrInvalidToken is returned for any malformed, expired, or badly
	// signed token.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// ownerKey is the context key for the authenticated owner ID.
type ownerKey struct{}

// WithOwner returns a context carrying the authenticated owner ID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext extracts the authenticated owner ID from the context.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerKey{}).(string)
	return ownerID, ok && ownerID != ""
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier for the given shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// OwnerID verifies tokenString and returns the owner identity from its
// subject claim.
func (v *Verifier) OwnerID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(_ *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}

	return sub, nil
}

// Sign creates an HS256 token for ownerID, valid for ttl.
// Used by tests and development tooling; production tokens come from the
// identity service.
func Sign(secret, ownerID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrSecretRequired
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
