// Package config provides application configuration management.
// It loads settings from environment variables, an optional .env file and an
// optional YAML file, and provides defaults for everything but the API key.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// ServerMode requires everything needed to serve /chatai.
	ServerMode ValidationMode = iota
	// ToolMode is used by chatctl, which never authenticates callers.
	ToolMode
)

// Config holds all application configuration
type Config struct {
	// Auth
	APIKey string // Shared secret expected as "Authorization: Bearer <APIKey>"

	// Server Configuration
	Host            string
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64 // Upper bound on the /chatai request body
	MaxMessageRunes int   // Upper bound on the message length in characters

	// Data Configuration
	DataSource      string        // Path or URL of the response table (csv, s3://, sqlite://)
	DataEncoding    string        // Character encoding of CSV sources (default: utf-8)
	DataLoadTimeout time.Duration // Timeout for reading the source at startup

	// Matching
	MatchStripPunctuation bool // Replace punctuation with spaces before scoring

	// CORS
	CORSAllowedOrigins []string

	// Rate Limits (Token Bucket, per client IP)
	RateBurst  float64 // Maximum burst tokens per client (0 = disabled)
	RateRefill float64 // Tokens refilled per second

	// S3 / R2 (only used for s3:// data sources)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Sentry
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string
}

// Load reads configuration for the HTTP server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration and validates it for the given mode.
// Precedence: environment (including .env) > YAML file > defaults.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	file, err := loadFile(getEnv(EnvConfigFile, DefaultConfigFile))
	if err != nil {
		return nil, err
	}
	s := settings{file: file}

	cfg := &Config{
		APIKey: s.getString(EnvAPIKey, ""),

		Host:            s.getString(EnvHost, "0.0.0.0"),
		Port:            s.getString(EnvPort, "5000"),
		LogLevel:        s.getString(EnvLogLevel, "info"),
		ShutdownTimeout: s.getDuration(EnvShutdownTimeout, GracefulShutdown),
		MaxBodyBytes:    int64(s.getInt(EnvMaxBodyBytes, 64<<10)),
		MaxMessageRunes: s.getInt(EnvMaxMessageRunes, 2000),

		DataSource:      s.getString(EnvDataSource, "chat_data.csv"),
		DataEncoding:    s.getString(EnvDataEncoding, "utf-8"),
		DataLoadTimeout: s.getDuration(EnvDataLoadTimeout, DataLoad),

		MatchStripPunctuation: s.getBool(EnvMatchStripPunctuation, false),

		CORSAllowedOrigins: s.getList(EnvCORSAllowedOrigins, []string{"*"}),

		RateBurst:  s.getFloat(EnvRateBurst, 0),
		RateRefill: s.getFloat(EnvRateRefill, 1),

		S3Endpoint:        s.getString(EnvS3Endpoint, ""),
		S3Region:          s.getString(EnvS3Region, "auto"),
		S3AccessKeyID:     s.getString(EnvS3AccessKeyID, ""),
		S3SecretAccessKey: s.getString(EnvS3SecretAccessKey, ""),

		SentryToken:       s.getString(EnvSentryToken, ""),
		SentryHost:        s.getString(EnvSentryHost, ""),
		SentryEnvironment: s.getString(EnvSentryEnvironment, "production"),
		SentrySampleRate:  s.getFloat(EnvSentrySampleRate, 1.0),

		BetterStackToken:    s.getString(EnvBetterStackToken, ""),
		BetterStackEndpoint: s.getString(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: s.getBool(EnvMetricsAuthEnabled, false),
		MetricsUsername:    s.getString(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    s.getString(EnvMetricsPassword, ""),
	}

	// Validate configuration
	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks if required configuration values are set
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if mode == ServerMode {
		if c.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvAPIKey))
		}
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		} else if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("%s must be a port number, got %q", EnvPort, c.Port))
		}
		if c.MaxBodyBytes <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxBodyBytes, c.MaxBodyBytes))
		}
		if c.MaxMessageRunes <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxMessageRunes, c.MaxMessageRunes))
		}
		if c.RateBurst > 0 && c.RateRefill <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive when rate limiting is enabled, got %v", EnvRateRefill, c.RateRefill))
		}
		if c.MetricsAuthEnabled && c.MetricsPassword == "" {
			errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
		}
		if c.SentryToken != "" && c.SentryHost == "" {
			errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
		}
	}

	if c.DataSource == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataSource))
	}
	if c.DataLoadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvDataLoadTimeout, c.DataLoadTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if strings.HasPrefix(c.DataSource, "s3://") && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
		errs = append(errs, errors.New("S3 credentials are required for s3:// data sources"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// RateLimitEnabled reports whether per-client rate limiting is on.
func (c *Config) RateLimitEnabled() bool {
	return c.RateBurst > 0
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// settings resolves a key from the environment first, then the YAML file.
type settings struct {
	file fileValues
}

func (s settings) raw(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	return s.file.lookup(key)
}

func (s settings) getString(key, defaultValue string) string {
	if value, ok := s.raw(key); ok {
		return value
	}
	return defaultValue
}

func (s settings) getInt(key string, defaultValue int) int {
	if value, ok := s.raw(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (s settings) getFloat(key string, defaultValue float64) float64 {
	if value, ok := s.raw(key); ok {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func (s settings) getBool(key string, defaultValue bool) bool {
	if value, ok := s.raw(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (s settings) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := s.raw(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getList splits a comma-separated value, dropping empty items.
func (s settings) getList(key string, defaultValue []string) []string {
	value, ok := s.raw(key)
	if !ok {
		return defaultValue
	}
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
