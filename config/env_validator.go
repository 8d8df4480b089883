package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"mcbedrock-downloader/catalog"
)

// Environment variable names
const (
	EnvVersionsAPI  = "VERSIONS_API"
	EnvMSAToken     = "MSA_TOKEN"
	EnvLogLevel     = "LOG_LEVEL"
	EnvHTTPTimeout  = "HTTP_TIMEOUT"
	EnvCatalogCache = "CATALOG_CACHE"
	EnvDownloadDir  = "DOWNLOAD_DIR"
)

// EnvValidator handles validation of environment variables
type EnvValidator struct{}

// NewEnvValidator creates a new environment validator instance
func NewEnvValidator() *EnvValidator {
	return &EnvValidator{}
}

// ValidateAll checks every variable that has a format and reports all
// invalid ones at once
func (e *EnvValidator) ValidateAll() error {
	var problems []string

	if _, err := e.GetVersionsAPI(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := e.GetHTTPTimeout(); err != nil {
		problems = append(problems, err.Error())
	}
	if level := e.GetLogLevel(); !IsValidLogLevel(level) {
		problems = append(problems, fmt.Sprintf("%s must be one of %s, got: %s", EnvLogLevel, strings.Join(LogLevels, ", "), level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid environment variables: %s. Please fix these variables in your .env file or environment", strings.Join(problems, "; "))
	}
	return nil
}

// GetVersionsAPI returns the catalog URL, defaulting to catalog.DefaultVersionsAPI
func (e *EnvValidator) GetVersionsAPI() (string, error) {
	raw := os.Getenv(EnvVersionsAPI)
	if raw == "" {
		return catalog.DefaultVersionsAPI, nil
	}
	if err := ValidateHTTPURL(raw); err != nil {
		return "", fmt.Errorf("%s %w", EnvVersionsAPI, err)
	}
	return raw, nil
}

// GetMSAToken returns the optional user authorization token
func (e *EnvValidator) GetMSAToken() string {
	return strings.TrimSpace(os.Getenv(EnvMSAToken))
}

// GetLogLevel returns the upper-cased log level, defaulting to INFO
func (e *EnvValidator) GetLogLevel() string {
	level := strings.ToUpper(strings.TrimSpace(os.Getenv(EnvLogLevel)))
	if level == "" {
		return DefaultLogLevel
	}
	return level
}

// GetHTTPTimeout returns the per-request timeout. Zero means none.
func (e *EnvValidator) GetHTTPTimeout() (time.Duration, error) {
	raw := os.Getenv(EnvHTTPTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s, got: %s", EnvHTTPTimeout, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative, got: %s", EnvHTTPTimeout, raw)
	}
	return d, nil
}

// GetCatalogCache returns the optional SQLite cache path
func (e *EnvValidator) GetCatalogCache() string {
	return os.Getenv(EnvCatalogCache)
}

// GetDownloadDir returns the directory for default output names, defaulting to "."
func (e *EnvValidator) GetDownloadDir() string {
	if dir := os.Getenv(EnvDownloadDir); dir != "" {
		return dir
	}
	return DefaultDownloadDir
}

// ValidateHTTPURL reports whether raw is an absolute http or https URL
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL, got: %s", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL, got: %s", raw)
	}
	return nil
}
