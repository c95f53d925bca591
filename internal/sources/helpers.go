package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// dateLayouts is the fallback chain of known publication date formats.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// parseDate tries the known layouts in order. When none matches it returns
// nil, the unknown-date sentinel. Substituting the current time would
// fabricate recency.
func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}

	logrus.Warnf("Could not parse date: %q", value)
	return nil
}

// normalizeRating maps a rating from a source scale onto the 0-5 scale.
func normalizeRating(rating, maxRating float64) float64 {
	if maxRating == 5.0 || maxRating <= 0 {
		return rating
	}
	return (rating / maxRating) * 5.0
}

// stableExternalID builds a deterministic identifier for sources that do
// not provide one. It hashes normalized content, so the same review yields
// the same ID across runs.
func stableExternalID(prefix string, parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(strings.TrimSpace(strings.ToLower(part))))
		h.Write([]byte{0})
	}
	return prefix + "_" + hex.EncodeToString(h.Sum(nil))[:16]
}

// shortHash returns a short stable digest of a single value, for composing
// identifiers.
func shortHash(value string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(value))))
	return hex.EncodeToString(sum[:])[:8]
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
