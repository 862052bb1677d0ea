// Package config loads settings for the ZMQ console tools from a YAML
// file, an optional .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines runtime settings for the console and dev server.
type Config struct {
	API       API       `yaml:"api"`
	DevServer DevServer `yaml:"devServer"`
	Firebase  Firebase  `yaml:"firebase"`
	Logging   Logging   `yaml:"logging"`
}

// API configures the request gateway.
type API struct {
	// BaseURL is the prefix every endpoint is appended to
	BaseURL string `yaml:"baseURL"`
	// APIKey is the bearer credential, usually supplied via ZMQ_API_KEY
	APIKey string `yaml:"apiKey"`
}

// DevServer configures the local dev server and its /api proxy.
type DevServer struct {
	Port int `yaml:"port"`
	// Target is the backend /api requests are forwarded to
	Target string `yaml:"target"`
	// ChangeOrigin rewrites the Host header to the target's host
	ChangeOrigin bool `yaml:"changeOrigin"`
	// Secure enables TLS certificate verification towards the target
	Secure bool `yaml:"secure"`
	// OutDir holds the built static files served for non-API paths
	OutDir string `yaml:"outDir"`
	// Sourcemap allows serving *.map files from OutDir
	Sourcemap bool `yaml:"sourcemap"`
}

// Firebase holds the identity provider's web app settings.
type Firebase struct {
	APIKey            string `yaml:"apiKey"`
	AuthDomain        string `yaml:"authDomain"`
	ProjectID         string `yaml:"projectId"`
	StorageBucket     string `yaml:"storageBucket"`
	MessagingSenderID string `yaml:"messagingSenderId"`
	AppID             string `yaml:"appId"`
	MeasurementID     string `yaml:"measurementId"`
}

// Logging configures logrus.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables rotated file output instead of stderr
	File string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL: "http://localhost:3000/api",
		},
		DevServer: DevServer{
			Port:         3000,
			Target:       "http://127.0.0.1:8080",
			ChangeOrigin: true,
			Secure:       false,
			OutDir:       "dist",
			Sourcemap:    true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, a .env file in the working
// directory, the YAML file at path and environment overrides, in that
// order. An empty path skips the YAML step.
func Load(path string) (*Config, error) {
	// Existing environment variables always win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads DefaultConfigPath if it exists, otherwise defaults
// plus environment.
func LoadDefault() (*Config, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	return Load(path)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ZMQ_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ZMQ_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("ZMQ_DEV_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ZMQ_DEV_PORT %q: %w", v, err)
		}
		c.DevServer.Port = port
	}
	if v := os.Getenv("ZMQ_PROXY_TARGET"); v != "" {
		c.DevServer.Target = v
	}
	if v := os.Getenv("ZMQ_PROXY_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ZMQ_PROXY_SECURE %q: %w", v, err)
		}
		c.DevServer.Secure = secure
	}
	if v := os.Getenv("ZMQ_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ZMQ_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("FIREBASE_PROJECT_ID"); v != "" {
		c.Firebase.ProjectID = v
	}
	return nil
}

// Validate checks the settings the tools cannot run without.
func (c *Config) Validate() error {
	if err := validateHTTPURL("api.baseURL", c.API.BaseURL); err != nil {
		return err
	}
	if c.DevServer.Port < 1 || c.DevServer.Port > 65535 {
		return fmt.Errorf("devServer.port must be between 1 and 65535, got: %d", c.DevServer.Port)
	}
	return validateHTTPURL("devServer.target", c.DevServer.Target)
}

func validateHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got: %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

// DefaultConfigPath returns the default location for the config file.
func DefaultConfigPath() string {
	if path := os.Getenv("ZMQ_CONFIG"); path != "" {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".zmq-console", "config.yaml")
}
