package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ZMQ_utils/internal/api"

	"github.com/schollz/progressbar/v3"
)

// sendResult is the outcome of sending one task.
type sendResult struct {
	ClientID string
	TaskID   string
	Err      error
}

// loadPayload returns the task payload from a file or from the --payload
// value. Valid JSON is sent as-is; anything else is sent as a JSON string.
func loadPayload(raw, file string) (any, error) {
	if file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error reading payload file: %w", err)
		}
		if !json.Valid(content) {
			return nil, fmt.Errorf("payload file %s does not contain valid JSON", file)
		}
		return json.RawMessage(content), nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil
	}
	return raw, nil
}

func newProgress(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Sending tasks"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// sendToClients sends the same task to each client in order. A failure for
// one client does not stop the others. bar may be nil.
func sendToClients(ctx context.Context, gateway *api.Client, clientIDs []string, mode string, payload any, bar *progressbar.ProgressBar) []sendResult {
	results := make([]sendResult, 0, len(clientIDs))

	for _, id := range clientIDs {
		if err := ctx.Err(); err != nil {
			results = append(results, sendResult{ClientID: id, Err: err})
			continue
		}

		result := sendResult{ClientID: id}
		resp, err := gateway.SendTask(ctx, id, mode, payload)
		switch {
		case err != nil:
			result.Err = err
		case !resp.Success:
			msg := resp.Message
			if msg == "" {
				msg = "no reason given"
			}
			result.Err = fmt.Errorf("server rejected task: %s", msg)
		default:
			result.TaskID = resp.TaskID
		}
		results = append(results, result)

		if bar != nil {
			bar.Add(1)
		}
	}

	if bar != nil {
		bar.Finish()
	}
	return results
}

// uniqueTargets drops empty and repeated client IDs, keeping first-seen order.
func uniqueTargets(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var unique []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}
