package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ZMQ_utils/internal/config"
	"ZMQ_utils/internal/devproxy"
	"ZMQ_utils/internal/logging"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	configPath string
	port       int
	target     string
	secure     bool
	outDir     string
	verbose    bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "devserver",
		Short: "Serve the console locally and proxy /api to the ZMQ server",
		Long: `devserver serves the built web console from a directory and forwards every /api
request to the ZMQ server, so the console and the API share one origin.

Example:
  devserver --port 3000 --target http://127.0.0.1:8080 --out-dir ./dist`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default $ZMQ_CONFIG or ~/.zmq-console/config.yaml)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (env ZMQ_DEV_PORT)")
	rootCmd.Flags().StringVarP(&target, "target", "t", "", "Backend /api requests are forwarded to (env ZMQ_PROXY_TARGET)")
	rootCmd.Flags().BoolVar(&secure, "secure", false, "Verify the target's TLS certificate")
	rootCmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory with the built console")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	server, err := devproxy.New(cfg.DevServer, logger)
	if err != nil {
		return err
	}

	color.Green("Dev server running at http://localhost:%d", cfg.DevServer.Port)
	color.Blue("Proxying /api to %s", cfg.DevServer.Target)
	if !cfg.DevServer.Secure {
		color.Yellow("TLS verification towards the target is disabled")
	}

	return server.Run(cmd.Context())
}

// loadConfig resolves the configuration, letting explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.DevServer.Port = port
	}
	if flags.Changed("target") {
		cfg.DevServer.Target = target
	}
	if flags.Changed("secure") {
		cfg.DevServer.Secure = secure
	}
	if flags.Changed("out-dir") {
		cfg.DevServer.OutDir = outDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
