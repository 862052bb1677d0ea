// Package auth holds the credential state used to talk to the ZMQ server API.
// It keeps the bearer token for the current session and builds the
// Authorization header value attached to outgoing requests.
//
// The package does not issue or validate tokens. Tokens come from the
// identity provider or from the backend's login endpoint and are only
// carried here until they are replaced.
//
// Example usage:
//
//	session := auth.NewSession("")
//	session.SetToken(apiKey)
//	if header, ok := session.AuthHeader(); ok {
//	    req.Header.Set("Authorization", header)
//	}
package auth

import (
	"fmt"
	"sync"
)

// Session represents the credential state of one client session.
// The zero value is an unauthenticated session ready for use.
type Session struct {
	mu    sync.RWMutex
	token string // bearer token, empty when unset
}

// NewSession creates a new Session seeded with the provided token.
// An empty token yields an unauthenticated session.
//
// Parameters:
//   - token: The initial bearer token, may be empty
//
// Returns:
//   - *Session: A new session instance
func NewSession(token string) *Session {
	return &Session{token: token}
}

// SetToken replaces the stored token unconditionally. No validation is
// performed. Requests that already read the token keep the old value;
// every request issued afterwards sees the new one. An empty string
// clears the credential.
//
// Parameters:
//   - token: The new bearer token
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Token returns the currently stored token, or an empty string if none is set.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a token is currently set.
func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// AuthHeader generates the Authorization header value for API requests.
// The token is read once, so the returned value is a consistent snapshot
// even if SetToken runs concurrently.
//
// Returns:
//   - string: The complete Authorization header value
//   - bool: false if no token is set and no header should be sent
func (s *Session) AuthHeader() (string, bool) {
	token := s.Token()
	if token == "" {
		return "", false
	}
	return fmt.Sprintf("Bearer %s", token), true
}

// String provides a safe string representation of the session,
// masking the token to prevent accidental exposure in logs.
func (s *Session) String() string {
	if s.HasToken() {
		return "Session{Token: ****}"
	}
	return "Session{Token: <none>}"
}
