package notifications

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/store"
	"github.com/sirupsen/logrus"
)

// DigestService builds the weekly rollup of review activity and hands it to
// the notifier as an informational payload.
type DigestService struct {
	store    store.Store
	notifier Notifier
}

// Digest is the 7-day rollup.
type Digest struct {
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	TotalNewReviews  int             `json:"total_new_reviews"`
	AverageRating    *float64        `json:"average_rating"`
	PositiveReviews  int             `json:"positive_reviews"`
	NegativeReviews  int             `json:"negative_reviews"`
	NeutralReviews   int             `json:"neutral_reviews"`
	ResponsePending  int             `json:"reviews_needing_response"`
	PlatformActivity map[string]int  `json:"platform_breakdown"`
	NotableReviews   []models.Review `json:"notable_reviews"`
}

// NewDigestService creates a digest service.
func NewDigestService(st store.Store, notifier Notifier) *DigestService {
	return &DigestService{store: st, notifier: notifier}
}

// Generate computes the rollup over reviews stored in the last 7 days.
func (d *DigestService) Generate() (*Digest, error) {
	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)

	reviews, err := d.store.ListReviewsCreatedSince(weekAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent reviews: %w", err)
	}

	digest := &Digest{
		PeriodStart:      weekAgo,
		PeriodEnd:        now,
		TotalNewReviews:  len(reviews),
		PlatformActivity: make(map[string]int),
	}

	platformNames := d.platformNames()

	var ratingSum float64
	var ratingCount int

	for _, review := range reviews {
		switch review.SentimentLabel {
		case "positive":
			digest.PositiveReviews++
		case "negative":
			digest.NegativeReviews++
		default:
			digest.NeutralReviews++
		}

		if review.NeedsResponse && review.ResponseText == "" {
			digest.ResponsePending++
		}

		if review.Rating != nil {
			ratingSum += *review.Rating
			ratingCount++
		}

		name, ok := platformNames[review.PlatformID]
		if !ok {
			name = fmt.Sprintf("platform %d", review.PlatformID)
		}
		digest.PlatformActivity[name]++
	}

	if ratingCount > 0 {
		avg := ratingSum / float64(ratingCount)
		digest.AverageRating = &avg
	}

	// Notable reviews are the strongest sentiment in either direction.
	sorted := make([]models.Review, len(reviews))
	copy(sorted, reviews)
	sort.Slice(sorted, func(i, j int) bool {
		return abs(sorted[i].SentimentScore) > abs(sorted[j].SentimentScore)
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	digest.NotableReviews = sorted

	return digest, nil
}

// Send generates and delivers the digest.
func (d *DigestService) Send() (*Digest, error) {
	digest, err := d.Generate()
	if err != nil {
		return nil, err
	}

	payload := &models.NotificationPayload{
		Title:    "Weekly Review Digest",
		Message:  d.formatDigest(digest),
		Severity: models.SeverityInfo,
		Data: map[string]interface{}{
			"digest": digest,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := d.notifier.Notify(payload); err != nil {
		// Never fatal; the digest is advisory.
		logrus.Errorf("Failed to deliver weekly digest: %v", err)
	}

	logrus.Infof("Weekly digest generated: %d new reviews", digest.TotalNewReviews)

	return digest, nil
}

func (d *DigestService) formatDigest(digest *Digest) string {
	avg := "N/A"
	if digest.AverageRating != nil {
		avg = fmt.Sprintf("%.1f/5", *digest.AverageRating)
	}

	lines := []string{
		"Weekly Review Summary",
		fmt.Sprintf("Period: %s to %s",
			digest.PeriodStart.Format("2006-01-02"), digest.PeriodEnd.Format("2006-01-02")),
		"",
		fmt.Sprintf("New Reviews: %d", digest.TotalNewReviews),
		fmt.Sprintf("Average Rating: %s", avg),
		fmt.Sprintf("Positive: %d  Neutral: %d  Negative: %d",
			digest.PositiveReviews, digest.NeutralReviews, digest.NegativeReviews),
		fmt.Sprintf("Awaiting Response: %d", digest.ResponsePending),
	}

	if len(digest.PlatformActivity) > 0 {
		lines = append(lines, "", "By Platform:")
		for name, count := range digest.PlatformActivity {
			lines = append(lines, fmt.Sprintf("  - %s: %d reviews", name, count))
		}
	}

	if len(digest.NotableReviews) > 0 {
		lines = append(lines, "", "Notable Reviews:")
		for _, review := range digest.NotableReviews {
			excerpt := truncate(review.ReviewText, 100)
			if excerpt != review.ReviewText {
				excerpt += "..."
			}
			rating := "N/A"
			if review.Rating != nil {
				rating = fmt.Sprintf("%.0f/5", *review.Rating)
			}
			lines = append(lines, fmt.Sprintf("  [%s] %s - %s", review.SentimentLabel, rating, excerpt))
		}
	}

	return strings.Join(lines, "\n")
}

func (d *DigestService) platformNames() map[uint]string {
	names := make(map[uint]string)
	platforms, err := d.store.ListActivePlatforms()
	if err != nil {
		logrus.Errorf("Failed to load platforms for digest: %v", err)
		return names
	}
	for _, p := range platforms {
		names[p.ID] = p.Name
	}
	return names
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
