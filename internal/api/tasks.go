// Package api provides task management functionality for the ZMQ server.
// This file implements task-related operations including:
// - Listing tasks and their results
// - Sending a task to a client
package api

import (
	"context"
	"net/http"
)

// GetTasks retrieves the tasks tracked by the server.
func (c *Client) GetTasks(ctx context.Context) (*TaskList, error) {
	var resp TaskList
	if err := c.Request(ctx, "/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendTask sends a task to a client. The server queues it and replies
// with the task ID; results show up later in GetTasks.
//
// Parameters:
//   - ctx: Context for the HTTP call
//   - clientID: ID of the target client
//   - mode: How the client should handle the payload (see ModeRun etc.)
//   - payload: Any JSON-marshalable value
//
// Returns:
//   - *SendTaskResponse: Acknowledgment from the server
//   - error: Any error that occurred during the operation
func (c *Client) SendTask(ctx context.Context, clientID, mode string, payload any) (*SendTaskResponse, error) {
	body, err := jsonBody(SendTaskRequest{
		ClientID: clientID,
		Mode:     mode,
		Payload:  payload,
	})
	if err != nil {
		return nil, err
	}

	var resp SendTaskResponse
	if err := c.Request(ctx, "/send", &RequestOptions{Method: http.MethodPost, Body: body}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
