package sources

import (
	"context"
	"fmt"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

// CaringSource scrapes a facility's review page on Caring.com.
type CaringSource struct {
	facilityURL string
	guard       *transport.Guard
}

// NewCaringSource creates a Caring.com scrape adapter.
func NewCaringSource(facilityURL string, guard *transport.Guard) *CaringSource {
	return &CaringSource{facilityURL: facilityURL, guard: guard}
}

func (c *CaringSource) Name() string { return "caring" }

func (c *CaringSource) Kind() models.APIType { return models.APITypeScrape }

func (c *CaringSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if c.facilityURL == "" {
		result.Success = false
		result.AddError("Caring.com URL not configured")
		return result
	}

	resp, err := c.guard.Get(ctx, c.facilityURL)
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch Caring.com page: %v", err))
		return result
	}

	doc, err := parseHTML(resp.Body())
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse Caring.com page: %v", err))
		return result
	}

	info := extractJSONLDAggregate(doc)
	extractMicrodataAggregate(doc, &info)
	result.AverageRating = info.AverageRating
	result.TotalCount = info.TotalCount
	result.Metadata["facility_name"] = info.FacilityName

	scraped := extractSchemaReviews(doc)
	if len(scraped) == 0 {
		scraped = extractClassReviews(doc, ".review, .testimonial")
	}

	for _, s := range scraped {
		if review, ok := normalizeScraped("caring", c.facilityURL, s); ok {
			result.AddReview(review)
		}
	}

	logrus.Infof("Fetched %d reviews from Caring.com", len(result.Reviews))

	return result
}
