// Package auth provides optional bearer-token protection for destructive
// endpoints (delete-all, index recreation). Tokens are HS256 JWTs signed
// with a shared secret; there is no identity provider behind them.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator validates admin tokens. A disabled authenticator lets every
// request through, which is the default for local use.
type Authenticator struct {
	secret  []byte
	enabled bool
}

// New creates an Authenticator. Enabling without a secret is a
// misconfiguration and fails.
func New(secret string, enabled bool) (*Authenticator, error) {
	if enabled && strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth enabled but no JWT secret configured")
	}
	return &Authenticator{secret: []byte(secret), enabled: enabled}, nil
}

// Enabled reports whether token checks are active.
func (a *Authenticator) Enabled() bool { return a.enabled }

// GenerateToken issues an HS256 token for the given subject.
func (a *Authenticator) GenerateToken(subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses and verifies a token, returning its subject.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// Middleware requires a valid bearer token when auth is enabled, and is a
// pass-through otherwise.
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "No authentication token", http.StatusUnauthorized)
			return
		}
		if _, err := a.ValidateToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
