package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultLogLevel    = "INFO"
	DefaultDownloadDir = "."
)

// LogLevels lists the accepted LOG_LEVEL values
var LogLevels = []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// IsValidLogLevel reports whether level is one of LogLevels
func IsValidLogLevel(level string) bool {
	return slices.Contains(LogLevels, level)
}

// Config holds all configuration values for the downloader
type Config struct {
	VersionsAPI  string        // Catalog URL
	MSAToken     string        // Optional MSA user token for Beta packages
	LogLevel     string        // Logging level (DEBUG, INFO, WARN, ERROR, FATAL)
	HTTPTimeout  time.Duration // Per-request timeout for protocol and catalog requests
	CatalogCache string        // Optional SQLite catalog cache path
	DownloadDir  string        // Directory for default output names
}

// LoadConfig loads and validates the configuration from environment variables
// and an optional .env file in the working directory
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: .env file could not be loaded: %v", err)
	}

	validator := NewEnvValidator()

	if err := validator.ValidateAll(); err != nil {
		return nil, fmt.Errorf("environment validation failed: %w", err)
	}

	api, err := validator.GetVersionsAPI()
	if err != nil {
		return nil, err
	}

	timeout, err := validator.GetHTTPTimeout()
	if err != nil {
		return nil, err
	}

	config := &Config{
		VersionsAPI:  api,
		MSAToken:     validator.GetMSAToken(),
		LogLevel:     validator.GetLogLevel(),
		HTTPTimeout:  timeout,
		CatalogCache: validator.GetCatalogCache(),
		DownloadDir:  validator.GetDownloadDir(),
	}

	return config, nil
}

// Validate performs additional validation on the loaded configuration,
// typically after command-line flags have overridden it
func (c *Config) Validate() error {
	if c.VersionsAPI == "" {
		return fmt.Errorf("versions API cannot be empty")
	}

	if err := ValidateHTTPURL(c.VersionsAPI); err != nil {
		return fmt.Errorf("versions API %w", err)
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP timeout cannot be negative, got: %s", c.HTTPTimeout)
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}

	if !IsValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s. Valid levels are: DEBUG, INFO, WARN, ERROR, FATAL", c.LogLevel)
	}

	return nil
}
