package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends for archived reports
const (
	StorageNone  = "none"
	StorageLocal = "local"
	StorageAzure = "azure"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Analysis Service configuration
	AnalysisAPIURL  string
	AnalysisTimeout time.Duration // 0 disables the timeout
	StageInterval   time.Duration

	// Session state
	HistoryCapacity int

	// Report archive configuration
	StorageBackend   string
	LocalStorageDir  string
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Schedule configuration
	HealthCheckSchedule string
	DigestSchedule      string // empty disables the digest

	ReportFooter string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		AnalysisAPIURL:  strings.TrimRight(getEnv("ANALYSIS_API_URL", "http://127.0.0.1:5000"), "/"),
		AnalysisTimeout: getDurationEnv("ANALYSIS_TIMEOUT", 0),
		StageInterval:   getDurationEnv("STAGE_INTERVAL", 1500*time.Millisecond),

		HistoryCapacity: getIntEnv("HISTORY_CAPACITY", 20),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageNone)),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "reports_output"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "forensic-reports"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		HealthCheckSchedule: getEnv("HEALTH_CHECK_SCHEDULE", "@every 30s"),
		DigestSchedule:      getEnv("DIGEST_SCHEDULE", ""),

		ReportFooter: getEnv("REPORT_FOOTER", "Deepfake Detection System - Hackathon Edition"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.AnalysisAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ANALYSIS_API_URL must be an absolute URL, got %q", c.AnalysisAPIURL)
	}

	if c.StageInterval <= 0 {
		return fmt.Errorf("STAGE_INTERVAL must be positive")
	}

	if c.AnalysisTimeout < 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must not be negative")
	}

	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("HISTORY_CAPACITY must be positive")
	}

	switch c.StorageBackend {
	case StorageNone, StorageLocal:
	case StorageAzure:
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'none', 'local' or 'azure'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.DigestSchedule != "" && !c.NotificationsEnabled() {
		return fmt.Errorf("DIGEST_SCHEDULE requires TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL")
	}

	return nil
}

// NotificationsEnabled reports whether at least one sharing channel is configured
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
