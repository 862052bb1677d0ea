// Package api provides client management functionality for the ZMQ server.
// This file implements client-related operations including:
// - Listing connected clients
// - Reading a client's recent log entries
package api

import (
	"context"
	"fmt"
)

// GetClients retrieves all clients known to the server.
func (c *Client) GetClients(ctx context.Context) (*ClientList, error) {
	var resp ClientList
	if err := c.Request(ctx, "/clients", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetClientLogs retrieves the most recent log entries of a client.
// clientID is inserted into the path as is; callers escape it if needed.
//
// Parameters:
//   - ctx: Context for the HTTP call
//   - clientID: ID of the client whose logs to read
//   - limit: Maximum number of entries, DefaultLogLimit when <= 0
//
// Returns:
//   - *ClientLogs: The log entries returned by the server
//   - error: Any error that occurred during the operation
func (c *Client) GetClientLogs(ctx context.Context, clientID string, limit int) (*ClientLogs, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	var resp ClientLogs
	endpoint := fmt.Sprintf("/client/%s/logs?limit=%d", clientID, limit)
	if err := c.Request(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
