// Package api provides authentication endpoints of the ZMQ server.
// This file implements the auth-related operations including:
// - Exchanging an identity provider ID token for an API key
// - Ending the current session
// - Verifying an API key
//
// None of these methods change the client's credential. Callers decide
// whether to pass a returned API key to SetAPIKey.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Login exchanges an identity provider ID token for a backend session.
//
// Parameters:
//   - ctx: Context for the HTTP call
//   - idToken: The ID token issued by the identity provider
//
// Returns:
//   - *AuthResponse: The backend's login result, including the API key
//   - error: Any error that occurred during the operation
func (c *Client) Login(ctx context.Context, idToken string) (*AuthResponse, error) {
	body, err := jsonBody(LoginRequest{IDToken: idToken})
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := c.Request(ctx, "/auth/login", &RequestOptions{Method: http.MethodPost, Body: body}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the backend session tied to the current credential.
func (c *Client) Logout(ctx context.Context) (*LogoutResponse, error) {
	var resp LogoutResponse
	if err := c.Request(ctx, "/auth/logout", &RequestOptions{Method: http.MethodPost}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyAPIKey asks the backend whether key is a valid API key.
// A rejected key surfaces as an *Error carrying the backend's message.
func (c *Client) VerifyAPIKey(ctx context.Context, key string) (*VerifyResponse, error) {
	body, err := jsonBody(VerifyRequest{APIKey: key})
	if err != nil {
		return nil, err
	}

	var resp VerifyResponse
	if err := c.Request(ctx, "/auth/verify", &RequestOptions{Method: http.MethodPost, Body: body}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// jsonBody serializes v for use as a request body.
func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}
	return bytes.NewReader(data), nil
}
