package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"ZMQ_utils/internal/api"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// matchWildcard reports whether s matches pattern, where * matches any run
// of characters and the match is anchored at both ends.
func matchWildcard(pattern, s string) bool {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	matched, err := regexp.MatchString(expr, s)
	return err == nil && matched
}

func filterClients(clients []api.ClientInfo, hostname string, online bool) []api.ClientInfo {
	var filtered []api.ClientInfo

	for i := range clients {
		client := &clients[i]

		// Filter by hostname if specified
		if hostname != "" && !matchWildcard(hostname, client.Hostname) {
			continue
		}

		// Filter by online status if specified
		if online && !client.IsOnline() {
			continue
		}

		filtered = append(filtered, *client)
	}

	return filtered
}

func filterTasks(tasks []api.Task, clientID, status string) []api.Task {
	var filtered []api.Task

	for _, task := range tasks {
		if clientID != "" && task.ClientID != clientID {
			continue
		}
		if status != "" && !strings.EqualFold(task.Status, status) {
			continue
		}
		filtered = append(filtered, task)
	}

	return filtered
}

func outputJSON(w io.Writer, v any) error {
	jsonOutput, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	fmt.Fprintln(w, string(jsonOutput))
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Write(header)
	for _, row := range rows {
		cw.Write(row)
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func outputClients(w io.Writer, format string, clients []api.ClientInfo) error {
	if format == "json" {
		return outputJSON(w, clients)
	}

	header := []string{"ID", "Hostname", "Platform", "Status", "Address", "Last Seen", "Tags"}
	rows := make([][]string, 0, len(clients))
	for i := range clients {
		client := &clients[i]
		rows = append(rows, []string{
			client.ID,
			client.Hostname,
			client.Platform,
			client.StatusString(),
			client.Address,
			client.GetLastSeenString(),
			strings.Join(client.Tags, ", "),
		})
	}

	if format == "csv" {
		return writeCSV(w, header, rows)
	}

	fmt.Fprintln(w, color.GreenString("\nFound %d clients:", len(clients)))
	writeTable(w, header, rows)
	return nil
}

func outputTasks(w io.Writer, format string, tasks []api.Task) error {
	if format == "json" {
		return outputJSON(w, tasks)
	}

	header := []string{"ID", "Client", "Mode", "Status", "Payload", "Result", "Created"}
	rows := make([][]string, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		rows = append(rows, []string{
			task.ID,
			task.ClientID,
			task.Mode,
			task.Status,
			task.PayloadString(),
			task.ResultString(),
			task.CreatedAt,
		})
	}

	if format == "csv" {
		return writeCSV(w, header, rows)
	}

	fmt.Fprintln(w, color.GreenString("\nFound %d tasks:", len(tasks)))
	writeTable(w, header, rows)
	return nil
}

func outputLogs(w io.Writer, format string, entries []api.LogEntry) error {
	switch format {
	case "json":
		return outputJSON(w, entries)
	case "csv":
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Timestamp, e.Level, e.Message})
		}
		return writeCSV(w, []string{"Timestamp", "Level", "Message"}, rows)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, color.YellowString("No log entries"))
		return nil
	}
	for _, e := range entries {
		level := strings.ToUpper(e.Level)
		if level == "" {
			level = "INFO"
		}
		fmt.Fprintf(w, "%s [%s] %s\n", e.Timestamp, level, e.Message)
	}
	return nil
}

func outputStatus(w io.Writer, format string, status *api.SystemStatus) error {
	if format == "json" {
		return outputJSON(w, status)
	}

	fmt.Fprintf(w, "\nServer Status:\n")
	fmt.Fprintf(w, "Status: %s\n", status.Status)
	if status.Version != "" {
		fmt.Fprintf(w, "Version: %s\n", status.Version)
	}
	fmt.Fprintf(w, "Uptime: %s\n", status.UptimeString())
	fmt.Fprintf(w, "Clients: %d connected / %d total\n", status.ClientsConnected, status.ClientsTotal)
	fmt.Fprintf(w, "Tasks: %d pending / %d total\n", status.TasksPending, status.TasksTotal)
	return nil
}
