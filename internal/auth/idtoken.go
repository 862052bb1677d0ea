package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims are the identity provider claims the console cares about.
type IDTokenClaims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseIDToken decodes an identity provider ID token WITHOUT verifying its
// signature. The result is only good for display; the backend is the one
// that validates the token on login.
func ParseIDToken(token string) (*IDTokenClaims, error) {
	if token == "" {
		return nil, errors.New("ID token is empty")
	}

	claims := &IDTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("error decoding ID token: %w", err)
	}
	return claims, nil
}

// DisplayName returns the best human readable identity in the claims.
func (c *IDTokenClaims) DisplayName() string {
	switch {
	case c.Email != "":
		return c.Email
	case c.Name != "":
		return c.Name
	default:
		return c.Subject
	}
}

// Expired reports whether the token's exp claim is before now.
// Tokens without exp are never considered expired.
func (c *IDTokenClaims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Time)
}

// IssuedFor reports whether the token's audience includes projectID.
// An empty projectID matches anything.
func (c *IDTokenClaims) IssuedFor(projectID string) bool {
	if projectID == "" {
		return true
	}
	return slices.Contains(c.Audience, projectID)
}
