// Copyright 2025 The octominmax authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Octopus Energy credentials
	AccountNumber string `yaml:"account_number"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`

	// Comparison settings
	Tariffs string `yaml:"tariffs"` // comma-separated tariff IDs to compare

	// Scheduling
	ExecutionTime string `yaml:"execution_time"` // HH:MM, local time
	OneOff        bool   `yaml:"one_off"`
	DryRun        bool   `yaml:"dry_run"`

	// Notifications: comma-separated shoutrrr URLs
	NotificationURLs string `yaml:"notification_urls"`

	// Workflow waits, overridable mainly for tests
	AgreementWaitSeconds   int `yaml:"agreement_wait_seconds"`
	VerifyRetryWaitSeconds int `yaml:"verify_retry_wait_seconds"`
	JitterMinSeconds       int `yaml:"jitter_min_seconds"`
	JitterMaxSeconds       int `yaml:"jitter_max_seconds"`

	// Storage
	StoragePath string `yaml:"storage_path"`

	// Debugging
	Debug bool `yaml:"debug"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Set defaults
	config := &Config{
		BaseURL:                DefaultBaseURL,
		Tariffs:                "go,agile,flexible",
		ExecutionTime:          "23:00",
		AgreementWaitSeconds:   60,
		VerifyRetryWaitSeconds: 20,
		JitterMinSeconds:       10,
		JitterMaxSeconds:       600,
		StoragePath:            getDefaultStoragePath(),
	}

	// If no path provided, return defaults with env var overrides
	if path == "" {
		config.applyEnvironmentVariables()
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentVariables()

	return config, nil
}

// getDefaultStoragePath returns the default storage path
func getDefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".octominmax"
	}
	return filepath.Join(home, ".config", "octominmax")
}

// applyEnvironmentVariables overrides config with environment variables
func (c *Config) applyEnvironmentVariables() {
	if val := os.Getenv("OCTOPUS_ACCOUNT_NUMBER"); val != "" {
		c.AccountNumber = val
	}
	if val := os.Getenv("OCTOPUS_API_KEY"); val != "" {
		c.APIKey = val
	}
	if val := os.Getenv("OCTOPUS_BASE_URL"); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv("NOTIFICATION_URLS"); val != "" {
		c.NotificationURLs = val
	}
	if val := os.Getenv("TARIFFS"); val != "" {
		c.Tariffs = val
	}
	if val := os.Getenv("EXECUTION_TIME"); val != "" {
		c.ExecutionTime = val
	}
	if val := os.Getenv("OCTOPUS_STORAGE_PATH"); val != "" {
		c.StoragePath = val
	}
	if isTruthy(os.Getenv("ONE_OFF")) {
		c.OneOff = true
	}
	if isTruthy(os.Getenv("DRY_RUN")) {
		c.DryRun = true
	}
	if isTruthy(os.Getenv("OCTOPUS_DEBUG")) {
		c.Debug = true
	}
}

func isTruthy(val string) bool {
	return val == "true" || val == "True" || val == "1"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.AccountNumber == "" {
		errors = append(errors, "account_number is required")
	} else if !strings.HasPrefix(c.AccountNumber, "A-") {
		errors = append(errors, "account_number must start with 'A-'")
	}

	if c.APIKey == "" {
		errors = append(errors, "api_key is required")
	} else if len(c.APIKey) < 20 {
		errors = append(errors, "api_key appears to be invalid (too short)")
	}

	if _, err := time.Parse("15:04", c.ExecutionTime); err != nil {
		errors = append(errors, fmt.Sprintf("execution_time %q must be in HH:MM format", c.ExecutionTime))
	}

	if strings.TrimSpace(c.Tariffs) == "" {
		errors = append(errors, "tariffs must name at least one tariff ID")
	}

	if c.AgreementWaitSeconds < 0 || c.VerifyRetryWaitSeconds < 0 {
		errors = append(errors, "workflow wait durations must not be negative")
	}

	if c.JitterMinSeconds < 0 || c.JitterMaxSeconds < c.JitterMinSeconds {
		errors = append(errors, "jitter window must satisfy 0 <= min <= max")
	}

	if c.StoragePath == "" {
		c.StoragePath = getDefaultStoragePath()
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// AgreementWait returns the post-request wait duration
func (c *Config) AgreementWait() time.Duration {
	return time.Duration(c.AgreementWaitSeconds) * time.Second
}

// VerifyRetryWait returns the wait between verification attempts
func (c *Config) VerifyRetryWait() time.Duration {
	return time.Duration(c.VerifyRetryWaitSeconds) * time.Second
}

// JitterWindow returns the pre-run jitter bounds
func (c *Config) JitterWindow() (time.Duration, time.Duration) {
	return time.Duration(c.JitterMinSeconds) * time.Second,
		time.Duration(c.JitterMaxSeconds) * time.Second
}
