// Package auth issues and verifies bearer tokens guarding the analyze API,
// grounded on the JWT patterns used across the retrieval pack's service
// repos (golang-jwt/jwt/v5, HMAC-signed, issuer + expiry claims).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers any verification failure: bad signature, expired,
// wrong issuer, or malformed claims.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the token payload this service issues and expects.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a single HMAC secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer builds an Issuer. secret must be non-empty; callers should
// refuse to start in production without one (config.Config.Validate
// enforces this at the ambient layer when the environment is production).
func NewIssuer(secret, issuerName string, ttlMinutes int) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		issuer: issuerName,
		ttl:    time.Duration(ttlMinutes) * time.Minute,
	}
}

// Issue signs a token for subject, valid for the issuer's configured TTL.
func (i *Issuer) Issue(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token, returning its claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method)
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
