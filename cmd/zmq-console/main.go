package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"ZMQ_utils/internal/api"
	"ZMQ_utils/internal/auth"
	"ZMQ_utils/internal/config"
	"ZMQ_utils/internal/logging"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	apiURL     string
	apiKey     string
	verbose    bool

	// Shared by list-style commands
	output         string
	filterHostname string
	onlineOnly     bool

	// Login/verify flags
	idToken   string
	verifyKey string

	// Task flags
	taskClients     []string
	taskAllOnline   bool
	taskMode        string
	taskPayload     string
	taskPayloadFile string
	taskYes         bool
	filterClient    string
	filterStatus    string

	// Logs flags
	logsClient string
	logsLimit  int

	// Resolved in PersistentPreRunE
	cfg     *config.Config
	gateway *api.Client
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default $ZMQ_CONFIG or ~/.zmq-console/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "u", "", "ZMQ server API base URL (env ZMQ_API_URL)")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "API key sent as bearer token (env ZMQ_API_KEY)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every API request")

	// Login command
	var loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Exchange an identity provider ID token for an API key",
		Long: `Exchange an ID token issued by the identity provider for a ZMQ server API key.

Example:
  zmq-console login --id-token "$(cat token.jwt)"
  export ZMQ_API_KEY=<printed key>`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if idToken == "" {
				idToken = os.Getenv("ZMQ_ID_TOKEN")
			}
			if idToken == "" {
				return fmt.Errorf("ID token is required (set via --id-token flag or ZMQ_ID_TOKEN environment variable)")
			}
			return nil
		},
		RunE: runLogin,
	}
	loginCmd.Flags().StringVar(&idToken, "id-token", "", "ID token from the identity provider")

	// Logout command
	var logoutCmd = &cobra.Command{
		Use:     "logout",
		Short:   "End the session tied to the API key",
		PreRunE: requireAPIKey,
		RunE:    runLogout,
	}

	// Verify command
	var verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Check whether an API key is accepted by the server",
		RunE:  runVerify,
	}
	verifyCmd.Flags().StringVar(&verifyKey, "key", "", "API key to verify (defaults to --api-key)")

	// Clients command
	var clientsCmd = &cobra.Command{
		Use:     "clients",
		Short:   "List and filter connected clients",
		PreRunE: requireAPIKey,
		RunE:    runClients,
	}
	clientsCmd.Flags().StringVarP(&output, "output", "f", "text", "Output format (text/json/csv)")
	clientsCmd.Flags().StringVar(&filterHostname, "filter-hostname", "", "Filter by hostname (supports wildcards *)")
	clientsCmd.Flags().BoolVar(&onlineOnly, "online", false, "Show only online clients")

	// Tasks command
	var tasksCmd = &cobra.Command{
		Use:     "tasks",
		Short:   "List tasks and their results",
		PreRunE: requireAPIKey,
		RunE:    runTasks,
	}
	tasksCmd.Flags().StringVarP(&output, "output", "f", "text", "Output format (text/json/csv)")
	tasksCmd.Flags().StringVar(&filterClient, "client", "", "Only show tasks for this client ID")
	tasksCmd.Flags().StringVar(&filterStatus, "status", "", "Only show tasks with this status")

	// Send command
	var sendCmd = &cobra.Command{
		Use:   "send",
		Short: "Send a task to one or more clients",
		Long: `Send a task to ZMQ clients, either by ID or to every online client matching a hostname filter.

Example:
  # Run a command on two clients
  zmq-console send --client c1 --client c2 --mode run --payload '{"cmd":"whoami"}'

  # Message every online client whose hostname matches "web-*"
  zmq-console send --all-online --filter-hostname "web-*" --mode message --payload hello`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIKey(cmd, args); err != nil {
				return err
			}
			if len(taskClients) == 0 && !taskAllOnline {
				return fmt.Errorf("either --client or --all-online is required")
			}
			if taskPayload != "" && taskPayloadFile != "" {
				return fmt.Errorf("--payload and --payload-file are mutually exclusive")
			}
			return nil
		},
		RunE: runSend,
	}
	sendCmd.Flags().StringSliceVar(&taskClients, "client", []string{}, "Target client ID (repeatable or comma-separated)")
	sendCmd.Flags().BoolVar(&taskAllOnline, "all-online", false, "Target every online client (combine with --filter-hostname)")
	sendCmd.Flags().StringVar(&filterHostname, "filter-hostname", "", "With --all-online, only clients whose hostname matches (supports wildcards *)")
	sendCmd.Flags().StringVarP(&taskMode, "mode", "m", api.ModeRun, "Task mode (run, exec, message)")
	sendCmd.Flags().StringVarP(&taskPayload, "payload", "p", "", "Task payload; JSON, or sent as a plain string")
	sendCmd.Flags().StringVar(&taskPayloadFile, "payload-file", "", "Read the JSON payload from a file")
	sendCmd.Flags().BoolVarP(&taskYes, "yes", "y", false, "Do not ask for confirmation")

	// Logs command
	var logsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries of a client",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIKey(cmd, args); err != nil {
				return err
			}
			if logsClient == "" {
				return fmt.Errorf("--client is required")
			}
			return nil
		},
		RunE: runLogs,
	}
	logsCmd.Flags().StringVar(&logsClient, "client", "", "Client ID (required)")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "l", api.DefaultLogLimit, "Maximum number of entries")
	logsCmd.Flags().StringVarP(&output, "output", "f", "text", "Output format (text/json/csv)")

	// Status command
	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVarP(&output, "output", "f", "text", "Output format (text/json)")

	// Add all commands to root
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "zmq-console",
	Short:         "ZMQ server console",
	Long:          `A CLI for the ZMQ server API: sign in, inspect clients and tasks, send tasks and read client logs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return err
		}

		// Flags win over config and environment
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		if apiKey != "" {
			cfg.API.APIKey = apiKey
		}
		if verbose {
			cfg.Logging.Level = logrus.DebugLevel.String()
		}

		logger, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}

		gateway = newGateway(cfg, logger)
		return nil
	},
}

// newGateway builds the API client for cfg with its own session.
func newGateway(cfg *config.Config, logger logrus.FieldLogger) *api.Client {
	return api.NewClient(cfg.API.BaseURL, auth.NewSession(cfg.API.APIKey), api.WithLogger(logger))
}

func requireAPIKey(cmd *cobra.Command, args []string) error {
	if !gateway.Session().HasToken() {
		return fmt.Errorf("API key is required (set via --api-key flag or ZMQ_API_KEY environment variable, or run login)")
	}
	return nil
}

// reportError prints a hint for authentication failures and returns err
// for cobra to print.
func reportError(action string, err error) error {
	if api.IsUnauthorized(err) {
		color.Red("Authentication failed. Please check your API key or run login again.")
	}
	return fmt.Errorf("%s: %w", action, err)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if claims, err := auth.ParseIDToken(idToken); err != nil {
		color.Yellow("Warning: %v", err)
	} else {
		color.Blue("Signing in as %s...", claims.DisplayName())
		if claims.Expired(time.Now()) {
			color.Yellow("Warning: ID token expired at %s, the server will likely reject it", claims.ExpiresAt.Time.Format(time.RFC3339))
		}
		if !claims.IssuedFor(cfg.Firebase.ProjectID) {
			color.Yellow("Warning: ID token was not issued for project %s", cfg.Firebase.ProjectID)
		}
	}

	resp, err := gateway.Login(cmd.Context(), idToken)
	if err != nil {
		return reportError("login failed", err)
	}
	if resp.APIKey != "" {
		gateway.SetAPIKey(resp.APIKey)
	}

	color.Green("Successfully signed in!")
	if resp.User != nil {
		fmt.Printf("User: %s (%s)\n", resp.User.Email, resp.User.UID)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	if resp.APIKey != "" {
		fmt.Printf("\nAPI key: %s\n", resp.APIKey)
		color.Yellow("Export it for later commands: export ZMQ_API_KEY=%s", resp.APIKey)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	resp, err := gateway.Logout(cmd.Context())
	if err != nil {
		return reportError("logout failed", err)
	}
	gateway.SetAPIKey("")

	color.Green("Signed out")
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	key := verifyKey
	if key == "" {
		key = gateway.Session().Token()
	}
	if key == "" {
		return fmt.Errorf("no API key to verify (use --key or --api-key)")
	}

	resp, err := gateway.VerifyAPIKey(cmd.Context(), key)
	if err != nil {
		return reportError("verification failed", err)
	}
	if !resp.Valid {
		color.Red("API key is not valid")
		if resp.Message != "" {
			fmt.Println(resp.Message)
		}
		return nil
	}

	color.Green("API key is valid")
	if resp.User != nil {
		fmt.Printf("User: %s (%s)\n", resp.User.Email, resp.User.UID)
	}
	return nil
}

func runClients(cmd *cobra.Command, args []string) error {
	color.Blue("Retrieving clients...")
	list, err := gateway.GetClients(cmd.Context())
	if err != nil {
		return reportError("failed to retrieve clients", err)
	}

	clients := filterClients(list.Clients, filterHostname, onlineOnly)
	return outputClients(os.Stdout, output, clients)
}

func runTasks(cmd *cobra.Command, args []string) error {
	color.Blue("Retrieving tasks...")
	list, err := gateway.GetTasks(cmd.Context())
	if err != nil {
		return reportError("failed to retrieve tasks", err)
	}

	tasks := filterTasks(list.Tasks, filterClient, filterStatus)
	return outputTasks(os.Stdout, output, tasks)
}

func runLogs(cmd *cobra.Command, args []string) error {
	logs, err := gateway.GetClientLogs(cmd.Context(), logsClient, logsLimit)
	if err != nil {
		return reportError(fmt.Sprintf("failed to retrieve logs for client %s", logsClient), err)
	}
	return outputLogs(os.Stdout, output, logs.Logs)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := gateway.GetSystemStatus(cmd.Context())
	if err != nil {
		return reportError("failed to retrieve status", err)
	}
	return outputStatus(os.Stdout, output, status)
}

func runSend(cmd *cobra.Command, args []string) error {
	payload, err := loadPayload(taskPayload, taskPayloadFile)
	if err != nil {
		return err
	}

	targets, err := resolveTargets(cmd.Context())
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		color.Yellow("No clients match the specified filters")
		return nil
	}

	if !taskYes {
		color.Yellow("\nSending %s task to %d clients:", taskMode, len(targets))
		for _, id := range targets {
			fmt.Printf("- %s\n", id)
		}
		fmt.Print("\nDo you want to proceed? [y/N] ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" {
			color.Yellow("Operation cancelled")
			return nil
		}
	}

	results := sendToClients(cmd.Context(), gateway, targets, taskMode, payload, newProgress(len(targets)))

	fmt.Println()
	var failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			color.Red("Failed to send task to client %s: %v", r.ClientID, r.Err)
			continue
		}
		color.Green("Task %s queued for client %s", r.TaskID, r.ClientID)
	}

	if ok := len(results) - failCount; ok > 0 {
		color.Green("\nSuccessfully sent task to %d clients", ok)
	}
	if failCount > 0 {
		return fmt.Errorf("failed to send task to %d clients", failCount)
	}
	return nil
}

// resolveTargets returns the explicit --client IDs, or with --all-online
// the online clients matching --filter-hostname.
func resolveTargets(ctx context.Context) ([]string, error) {
	if !taskAllOnline {
		return uniqueTargets(taskClients), nil
	}

	color.Blue("Retrieving clients...")
	list, err := gateway.GetClients(ctx)
	if err != nil {
		return nil, reportError("failed to retrieve clients", err)
	}

	targets := append([]string{}, taskClients...)
	for _, c := range filterClients(list.Clients, filterHostname, true) {
		targets = append(targets, c.ID)
	}
	return uniqueTargets(targets), nil
}
