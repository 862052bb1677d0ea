package api

import "context"

// GetSystemStatus retrieves the server's health and counters.
func (c *Client) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	var resp SystemStatus
	if err := c.Request(ctx, "/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
