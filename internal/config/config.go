package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Schedule presets for REPORT_SCHEDULE; cron expressions carry a seconds field
const (
	DailyCron  = "0 0 9 * * *"
	WeeklyCron = "0 0 9 * * MON"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ReportSchedule string // "daily" or "weekly"
	TimeZone       string
	Location       *time.Location

	// Fetch configuration
	Source                   string // "reddit" or "pushshift"
	RedditMode               string // "listing" or "search"
	IncludeComments          bool
	IndependentCommentWindow bool
	MaxItems                 int

	// Reddit API credentials
	RedditClientID          string
	RedditClientSecret      string
	RedditUserAgent         string
	RedditRequestsPerMinute int

	// Pushshift archive
	PushshiftURL   string
	PushshiftToken string

	// Sentiment analysis
	Scorer string // "vader" or "polarity"

	// Artifact storage
	StorageBackend   string // "local", "sqlite" or "azure"
	StorageAccount   string
	StorageContainer string
	LocalStorageDir  string
	SQLitePath       string

	// Stored reports older than this many days are pruned; 0 keeps everything
	ReportRetentionDays int

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string

	// Watches run on the schedule. Loaded from WATCHES_FILE, or built from
	// KEYWORDS when no file is given.
	WatchesFile      string
	Keywords         []string
	DefaultSubreddit string
	Watches          []Watch
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Debug:          getBoolEnv("DEBUG", false),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "daily"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		Source:                   strings.ToLower(getEnv("SOURCE", "reddit")),
		RedditMode:               strings.ToLower(getEnv("REDDIT_MODE", "listing")),
		IncludeComments:          getBoolEnv("INCLUDE_COMMENTS", true),
		IndependentCommentWindow: getBoolEnv("INDEPENDENT_COMMENT_WINDOW", false),
		MaxItems:                 getIntEnv("MAX_ITEMS", 100),

		RedditClientID:          getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:      getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:         getEnv("REDDIT_USER_AGENT", "reddit-mentions-listener/1.0"),
		RedditRequestsPerMinute: getIntEnv("REDDIT_REQUESTS_PER_MINUTE", 100),

		PushshiftURL:   getEnv("PUSHSHIFT_URL", "https://api.pushshift.io"),
		PushshiftToken: getEnv("PUSHSHIFT_TOKEN", ""),

		Scorer: strings.ToLower(getEnv("SENTIMENT_SCORER", "vader")),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "mentions"),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "reports"),
		SQLitePath:       getEnv("SQLITE_PATH", "mentions.db"),

		ReportRetentionDays: getIntEnv("REPORT_RETENTION_DAYS", 90),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:          getEnv("SMTP_FROM", ""),

		WatchesFile:      getEnv("WATCHES_FILE", ""),
		Keywords:         getSliceEnv("KEYWORDS", nil),
		DefaultSubreddit: getEnv("SUBREDDIT", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.TimeZone, err)
	}
	cfg.Location = loc

	if cfg.WatchesFile != "" {
		watches, err := LoadWatches(cfg.WatchesFile)
		if err != nil {
			return nil, err
		}
		cfg.Watches = watches
	} else {
		cfg.Watches = watchesFromKeywords(cfg.Keywords, cfg.DefaultSubreddit)
	}
	if err := cfg.applyWatchDefaults(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DefaultCron returns the cron expression of the REPORT_SCHEDULE preset
func (c *Config) DefaultCron() string {
	if c.ReportSchedule == "weekly" {
		return WeeklyCron
	}
	return DailyCron
}

// DefaultLookbackDays is the window length matching the REPORT_SCHEDULE preset
func (c *Config) DefaultLookbackDays() int {
	if c.ReportSchedule == "weekly" {
		return 7
	}
	return 1
}

// RedditConfigured reports whether Reddit API credentials are present
func (c *Config) RedditConfigured() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != ""
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.Source != "reddit" && c.Source != "pushshift" {
		return fmt.Errorf("SOURCE must be 'reddit' or 'pushshift'")
	}

	if c.RedditMode != "listing" && c.RedditMode != "search" {
		return fmt.Errorf("REDDIT_MODE must be 'listing' or 'search'")
	}

	if c.Scorer != "vader" && c.Scorer != "polarity" {
		return fmt.Errorf("SENTIMENT_SCORER must be 'vader' or 'polarity'")
	}

	if c.MaxItems < 0 {
		return fmt.Errorf("MAX_ITEMS must not be negative")
	}

	if c.ReportRetentionDays < 0 {
		return fmt.Errorf("REPORT_RETENTION_DAYS must not be negative")
	}

	switch c.StorageBackend {
	case "local", "sqlite":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'local', 'sqlite' or 'azure'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
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

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
