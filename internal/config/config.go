package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Database
	DatabasePath string

	// Transport
	RateLimitPerMinute int
	RequestTimeoutSecs int

	// Scheduler
	SyncIntervalHours int
	RatingCheckHour   int
	DigestWeekday     string
	DigestHour        int
	EnableScheduler   bool

	// Sentiment analysis
	SentimentAnalyzer string // "vader" or "keyword"

	// Sync
	MaxConcurrentPlatforms int

	// Notification configuration
	WebhookURL        string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Raw payload archive
	ArchiveDir       string
	StorageAccount   string
	StorageContainer string

	// API keys and per-platform settings
	GooglePlacesAPIKey string
	GooglePlaceID      string
	YelpAPIKey         string
	YelpBusinessID     string
	FacebookToken      string
	FacebookPageID     string
	MedicareProviderID string
	CaringURL          string
	APlaceForMomURL    string
	SeniorAdvisorURL   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabasePath: getEnv("DATABASE_PATH", "reviews.db"),

		RateLimitPerMinute: getIntEnv("RATE_LIMIT_REQUESTS_PER_MINUTE", 30),
		RequestTimeoutSecs: getIntEnv("REQUEST_TIMEOUT_SECONDS", 30),

		SyncIntervalHours: getIntEnv("SYNC_INTERVAL_HOURS", 6),
		RatingCheckHour:   getIntEnv("RATING_CHECK_HOUR", 8),
		DigestWeekday:     getEnv("DIGEST_WEEKDAY", "MON"),
		DigestHour:        getIntEnv("DIGEST_HOUR", 9),
		EnableScheduler:   getBoolEnv("ENABLE_SCHEDULER", true),

		SentimentAnalyzer: getEnv("SENTIMENT_ANALYZER", "vader"),

		MaxConcurrentPlatforms: getIntEnv("MAX_CONCURRENT_PLATFORMS", 4),

		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		ArchiveDir:       getEnv("ARCHIVE_DIR", ""),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "review-sync"),

		GooglePlacesAPIKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
		GooglePlaceID:      getEnv("GOOGLE_PLACE_ID", ""),
		YelpAPIKey:         getEnv("YELP_API_KEY", ""),
		YelpBusinessID:     getEnv("YELP_BUSINESS_ID", ""),
		FacebookToken:      getEnv("FACEBOOK_ACCESS_TOKEN", ""),
		FacebookPageID:     getEnv("FACEBOOK_PAGE_ID", ""),
		MedicareProviderID: getEnv("MEDICARE_PROVIDER_ID", ""),
		CaringURL:          getEnv("CARING_COM_URL", ""),
		APlaceForMomURL:    getEnv("A_PLACE_FOR_MOM_URL", ""),
		SeniorAdvisorURL:   getEnv("SENIOR_ADVISOR_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SyncIntervalHours < 1 {
		return fmt.Errorf("SYNC_INTERVAL_HOURS must be at least 1")
	}

	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_MINUTE must be at least 1")
	}

	if c.SentimentAnalyzer != "vader" && c.SentimentAnalyzer != "keyword" {
		return fmt.Errorf("SENTIMENT_ANALYZER must be 'vader' or 'keyword'")
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
