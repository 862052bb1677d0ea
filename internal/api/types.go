// Package api provides types and functions for interacting with the ZMQ server API.
// It includes functionality for authentication, connected clients, tasks,
// client logs and system status.
//
// The package is organized into several main components:
// - The request gateway (Client) and its generic Request primitive
// - Authentication (login, logout, API key verification)
// - Client management (listing clients, reading client logs)
// - Task management (listing tasks, sending tasks)
// - System status
//
// This file contains the wire types and constants used throughout the package.
package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the API prefix when the console is served by the dev server.
const DefaultBaseURL = "http://localhost:3000/api"

// DefaultLogLimit is the number of log entries requested when no limit is given.
const DefaultLogLimit = 100

// Task modes understood by the ZMQ server
const (
	ModeRun     = "run"
	ModeExec    = "exec"
	ModeMessage = "message"
)

// Client status values reported by the backend
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User is the identity the backend associates with a session.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse is returned by POST /auth/login. APIKey is the bearer
// credential to use for subsequent requests.
type AuthResponse struct {
	Success bool   `json:"success"`
	APIKey  string `json:"api_key,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// LogoutResponse is returned by POST /auth/logout
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// VerifyRequest is the body of POST /auth/verify
type VerifyRequest struct {
	APIKey string `json:"api_key"`
}

// VerifyResponse is returned by POST /auth/verify
type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClientInfo represents a worker connected to the ZMQ server.
type ClientInfo struct {
	// ID is the unique client identifier used for tasking
	ID string `json:"id"`
	// Hostname reported by the client
	Hostname string `json:"hostname,omitempty"`
	// Address is the client's remote address as seen by the server
	Address string `json:"address,omitempty"`
	// Platform is the client's operating system
	Platform string `json:"platform,omitempty"`
	// Status is the connection state (online/offline)
	Status string `json:"status,omitempty"`
	// Connected indicates if the client currently holds a socket
	Connected bool `json:"connected"`
	// LastSeen is the timestamp of the last heartbeat
	LastSeen string `json:"last_seen,omitempty"`
	// Tags assigned to the client
	Tags []string `json:"tags,omitempty"`
}

// ClientList is the response of GET /clients. Servers that answer with a
// bare array are accepted too. Raw keeps the body as received.
type ClientList struct {
	Clients []ClientInfo    `json:"clients"`
	Raw     json.RawMessage `json:"-"`
}

func (l *ClientList) UnmarshalJSON(data []byte) error {
	type plain ClientList
	var out plain
	if err := decodeList(data, &out, &out.Clients); err != nil {
		return err
	}
	*l = ClientList(out)
	l.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Task is a unit of work sent to a client.
type Task struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id"`
	Mode        string          `json:"mode"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      string          `json:"status,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
}

// TaskList is the response of GET /tasks. Like ClientList it accepts a
// bare array and keeps the raw body.
type TaskList struct {
	Tasks []Task          `json:"tasks"`
	Raw   json.RawMessage `json:"-"`
}

func (l *TaskList) UnmarshalJSON(data []byte) error {
	type plain TaskList
	var out plain
	if err := decodeList(data, &out, &out.Tasks); err != nil {
		return err
	}
	*l = TaskList(out)
	l.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// decodeList unmarshals a bare JSON array into items and anything else
// into wrapper.
func decodeList(data []byte, wrapper, items any) error {
	if gjson.ParseBytes(data).IsArray() {
		return json.Unmarshal(data, items)
	}
	return json.Unmarshal(data, wrapper)
}

// SendTaskRequest is the body of POST /send. Field order is the wire order.
type SendTaskRequest struct {
	ClientID string `json:"client_id"`
	Mode     string `json:"mode"`
	Payload  any    `json:"payload"`
}

// SendTaskResponse is returned by POST /send
type SendTaskResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// LogEntry is a single client log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
}

// ClientLogs is the response of GET /client/{id}/logs
type ClientLogs struct {
	ClientID string     `json:"client_id,omitempty"`
	Logs     []LogEntry `json:"logs"`
}

// SystemStatus is the response of GET /status. Raw keeps the body as
// received, including fields not mapped here.
type SystemStatus struct {
	Status           string          `json:"status"`
	Version          string          `json:"version,omitempty"`
	Uptime           Seconds         `json:"uptime"`
	ClientsConnected int             `json:"clients_connected"`
	ClientsTotal     int             `json:"clients_total"`
	TasksPending     int             `json:"tasks_pending"`
	TasksTotal       int             `json:"tasks_total"`
	Raw              json.RawMessage `json:"-"`
}

func (s *SystemStatus) UnmarshalJSON(data []byte) error {
	type plain SystemStatus
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*s = SystemStatus(out)
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Seconds is a duration in seconds. It decodes from a JSON number, a
// numeric string or a Go duration string such as "1h2m3s". Any other
// string decodes as zero.
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	v := gjson.ParseBytes(data)
	switch v.Type {
	case gjson.Number:
		*s = Seconds(v.Num)
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			*s = Seconds(f)
		} else if d, err := time.ParseDuration(strings.TrimSpace(v.Str)); err == nil {
			*s = Seconds(d.Seconds())
		} else {
			*s = 0
		}
	case gjson.Null:
	default:
		return fmt.Errorf("invalid uptime value: %s", v.Raw)
	}
	return nil
}

// IsOnline reports whether the client is connected. Older servers only
// send the status string, newer ones the connected flag.
func (c *ClientInfo) IsOnline() bool {
	return c.Connected || strings.EqualFold(c.Status, StatusOnline)
}

// StatusString returns ONLINE or OFFLINE for display.
func (c *ClientInfo) StatusString() string {
	if c.IsOnline() {
		return "ONLINE"
	}
	return "OFFLINE"
}

// GetLastSeenString returns the last seen time of the client.
// Returns "Never" if the client has not been seen.
func (c *ClientInfo) GetLastSeenString() string {
	if c.LastSeen == "" {
		return "Never"
	}
	return c.LastSeen
}

// PayloadString returns the compact JSON payload, or "-" when there is none.
func (t *Task) PayloadString() string {
	return rawString(t.Payload)
}

// ResultString returns the compact JSON result, or "-" when there is none.
func (t *Task) ResultString() string {
	return rawString(t.Result)
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "-"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// UptimeString renders Uptime (seconds) as a duration like 1h2m3s.
func (s *SystemStatus) UptimeString() string {
	total := int64(s.Uptime)
	h, m, sec := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
