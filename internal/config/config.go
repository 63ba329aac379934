// Package config provides configuration management for the admin API server
// and its clients.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultRequestTimeout  = 30 * time.Second
	DefaultStateDir        = ".adminstate"
	DefaultTokenTTL        = 8 * time.Hour
)

// Environment variable names.
const (
	EnvAPIURL          = "APP_API_URL"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvRequestTimeout  = "APP_REQUEST_TIMEOUT"
	EnvStateDir        = "APP_STATE_DIR"
	EnvServerPort      = "APP_SERVER_PORT"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvTokenTTL        = "APP_TOKEN_TTL"
)

// Config holds the application configuration.
type Config struct {
	// Client settings.
	APIURL         string
	RequestTimeout time.Duration
	StateDir       string

	// Server settings.
	ServerPort      int
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Basic auth users (format: "user1:bcrypt_hash[:perm1|perm2],user2:bcrypt_hash").
	BasicAuthUsers string
	TokenTTL       time.Duration

	LogLevel string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidRequestTimeout  = errors.New("request timeout must be positive")
	ErrInvalidTokenTTL        = errors.New("token TTL must be positive")
	ErrInvalidAPIURL          = errors.New("API URL must be an absolute http or https URL")
	ErrEmptyStateDir          = errors.New("state directory cannot be empty")
	ErrMissingBasicAuthUsers  = errors.New("basic auth users must be set to run the server")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        DefaultLogLevel,
		RequestTimeout:  DefaultRequestTimeout,
		StateDir:        DefaultStateDir,
		ServerPort:      DefaultServerPort,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		TokenTTL:        DefaultTokenTTL,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadClientEnv(); err != nil {
		return err
	}

	if err := c.loadServerEnv(); err != nil {
		return err
	}

	return nil
}

// loadClientEnv loads the variables used by the state layer and the CLI.
func (c *Config) loadClientEnv() error {
	if val := os.Getenv(EnvAPIURL); val != "" {
		c.APIURL = val
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvRequestTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRequestTimeout, err)
		}
		c.RequestTimeout = timeout
	}

	if val := os.Getenv(EnvStateDir); val != "" {
		c.StateDir = val
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvTokenTTL); val != "" {
		ttl, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTokenTTL, err)
		}
		c.TokenTTL = ttl
	}

	return nil
}

// Validate checks if the configuration values are valid. An empty API URL is
// accepted here; the transport reports it when a request is made.
func (c *Config) Validate() error {
	if err := c.validateClient(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return nil
}

// validateClient validates the client-side configuration.
func (c *Config) validateClient() error {
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidAPIURL
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}

	if c.StateDir == "" {
		return ErrEmptyStateDir
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if c.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}

	return nil
}

// RequireServerAuth reports whether the server can authenticate anyone.
func (c *Config) RequireServerAuth() error {
	if c.BasicAuthUsers == "" {
		return ErrMissingBasicAuthUsers
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
