package config

import (
	"strings"
	"testing"
	"time"

	"mcbedrock-downloader/catalog"
)

var allEnvVars = []string{EnvVersionsAPI, EnvMSAToken, EnvLogLevel, EnvHTTPTimeout, EnvCatalogCache, EnvDownloadDir}

// setEnv clears every variable the package reads, then applies envVars
func setEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		errorMsg    string
		expected    Config
	}{
		{
			name: "full configuration",
			envVars: map[string]string{
				"VERSIONS_API":  "https://example.com/versions.json",
				"MSA_TOKEN":     "t=abc",
				"LOG_LEVEL":     "debug",
				"HTTP_TIMEOUT":  "45s",
				"CATALOG_CACHE": "/tmp/catalog.db",
				"DOWNLOAD_DIR":  "/tmp/downloads",
			},
			expected: Config{
				VersionsAPI:  "https://example.com/versions.json",
				MSAToken:     "t=abc",
				LogLevel:     "DEBUG",
				HTTPTimeout:  45 * time.Second,
				CatalogCache: "/tmp/catalog.db",
				DownloadDir:  "/tmp/downloads",
			},
		},
		{
			name:    "defaults",
			envVars: map[string]string{},
			expected: Config{
				VersionsAPI: catalog.DefaultVersionsAPI,
				LogLevel:    "INFO",
				DownloadDir: ".",
			},
		},
		{
			name: "relative versions API",
			envVars: map[string]string{
				"VERSIONS_API": "versions.json",
			},
			expectError: true,
			errorMsg:    "environment validation failed",
		},
		{
			name: "invalid timeout",
			envVars: map[string]string{
				"HTTP_TIMEOUT": "forever",
			},
			expectError: true,
			errorMsg:    "environment validation failed",
		},
		{
			name: "invalid log level",
			envVars: map[string]string{
				"LOG_LEVEL": "VERBOSE",
			},
			expectError: true,
			errorMsg:    "environment validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.envVars)

			config, err := LoadConfig()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
					return
				}
				if tt.errorMsg != "" && !strings.HasPrefix(err.Error(), tt.errorMsg) {
					t.Errorf("expected error message to start with %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("expected no error but got: %v", err)
				return
			}
			if config == nil {
				t.Errorf("expected config but got nil")
				return
			}
			if *config != tt.expected {
				t.Errorf("expected config %+v, got %+v", tt.expected, *config)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("loaded config should validate, got: %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			VersionsAPI: catalog.DefaultVersionsAPI,
			LogLevel:    "INFO",
			DownloadDir: ".",
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:        "empty versions API",
			mutate:      func(c *Config) { c.VersionsAPI = "" },
			expectError: true,
			errorMsg:    "versions API cannot be empty",
		},
		{
			name:        "non-http versions API",
			mutate:      func(c *Config) { c.VersionsAPI = "ftp://example.com/list" },
			expectError: true,
			errorMsg:    "versions API must be an absolute http(s) URL",
		},
		{
			name:        "negative timeout",
			mutate:      func(c *Config) { c.HTTPTimeout = -time.Second },
			expectError: true,
			errorMsg:    "HTTP timeout cannot be negative",
		},
		{
			name:        "empty download directory",
			mutate:      func(c *Config) { c.DownloadDir = "" },
			expectError: true,
			errorMsg:    "download directory cannot be empty",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "TRACE" },
			expectError: true,
			errorMsg:    "invalid log level: TRACE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
					return
				}
				if !strings.HasPrefix(err.Error(), tt.errorMsg) {
					t.Errorf("expected error message to start with %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}
