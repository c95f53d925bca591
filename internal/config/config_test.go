package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "reviews.db", cfg.DatabasePath)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, 6, cfg.SyncIntervalHours)
	assert.Equal(t, 8, cfg.RatingCheckHour)
	assert.Equal(t, "MON", cfg.DigestWeekday)
	assert.Equal(t, "vader", cfg.SentimentAnalyzer)
	assert.Equal(t, 4, cfg.MaxConcurrentPlatforms)
	assert.True(t, cfg.EnableScheduler)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_INTERVAL_HOURS", "12")
	t.Setenv("SENTIMENT_ANALYZER", "keyword")
	t.Setenv("ENABLE_SCHEDULER", "false")
	t.Setenv("GOOGLE_PLACES_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.SyncIntervalHours)
	assert.Equal(t, "keyword", cfg.SentimentAnalyzer)
	assert.False(t, cfg.EnableScheduler)
	assert.Equal(t, "test-key", cfg.GooglePlacesAPIKey)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "Sync interval below one hour",
			env:  map[string]string{"SYNC_INTERVAL_HOURS": "0"},
		},
		{
			name: "Zero rate limit",
			env:  map[string]string{"RATE_LIMIT_REQUESTS_PER_MINUTE": "0"},
		},
		{
			name: "Unknown sentiment analyzer",
			env:  map[string]string{"SENTIMENT_ANALYZER": "bayes"},
		},
		{
			name: "Email without SMTP settings",
			env:  map[string]string{"NOTIFICATION_EMAIL": "ops@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetIntEnv_IgnoresUnparseable(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.SMTPPort)
}
