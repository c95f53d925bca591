package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected *time.Time
	}{
		{
			name:     "RFC3339",
			value:    "2026-03-15T10:30:00Z",
			expected: timePtr(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)),
		},
		{
			name:     "Space separated datetime",
			value:    "2026-03-15 10:30:00",
			expected: timePtr(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)),
		},
		{
			name:     "Date only",
			value:    "2026-03-15",
			expected: timePtr(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:     "Long month name",
			value:    "March 15, 2026",
			expected: timePtr(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:     "US slash format",
			value:    "03/15/2026",
			expected: timePtr(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:     "Surrounding whitespace",
			value:    "  2026-03-15  ",
			expected: timePtr(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		{name: "Empty string", value: "", expected: nil},
		{name: "Garbage", value: "two weeks ago", expected: nil},
		{name: "Unknown format", value: "15.03.2026", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseDate(tt.value)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.True(t, tt.expected.Equal(*result), "got %v, want %v", result, tt.expected)
		})
	}
}

func TestNormalizeRating(t *testing.T) {
	assert.Equal(t, 4.0, normalizeRating(4.0, 5.0))
	assert.Equal(t, 2.5, normalizeRating(5.0, 10.0))
	assert.Equal(t, 5.0, normalizeRating(10.0, 10.0))
	// Unknown scale passes through.
	assert.Equal(t, 3.0, normalizeRating(3.0, 0))
}

func TestStableExternalID(t *testing.T) {
	first := stableExternalID("caring", "Jane D.", "Great place", "2026-01-01")
	second := stableExternalID("caring", "Jane D.", "Great place", "2026-01-01")
	assert.Equal(t, first, second)

	// Case and whitespace differences collapse to the same ID.
	normalized := stableExternalID("caring", " JANE D. ", "great place", "2026-01-01")
	assert.Equal(t, first, normalized)

	different := stableExternalID("caring", "Jane D.", "Awful place", "2026-01-01")
	assert.NotEqual(t, first, different)

	otherPrefix := stableExternalID("apfm", "Jane D.", "Great place", "2026-01-01")
	assert.NotEqual(t, first, otherPrefix)

	// prefix + "_" + 16 hex chars
	assert.Len(t, first, len("caring")+1+16)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, shortHash("Jane D."), shortHash(" jane d. "))
	assert.NotEqual(t, shortHash("Jane D."), shortHash("John D."))
	assert.Len(t, shortHash("Jane D."), 8)
}

func timePtr(t time.Time) *time.Time { return &t }
