package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

// APlaceForMomSource scrapes a facility's review page on aplaceformom.com.
// APFM annotates its pages with schema.org markup, so JSON-LD extraction
// usually succeeds.
type APlaceForMomSource struct {
	facilityURL string
	guard       *transport.Guard
}

// NewAPlaceForMomSource creates an A Place for Mom scrape adapter.
func NewAPlaceForMomSource(facilityURL string, guard *transport.Guard) *APlaceForMomSource {
	return &APlaceForMomSource{facilityURL: facilityURL, guard: guard}
}

func (a *APlaceForMomSource) Name() string { return "aplaceformom" }

func (a *APlaceForMomSource) Kind() models.APIType { return models.APITypeScrape }

func (a *APlaceForMomSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if a.facilityURL == "" {
		result.Success = false
		result.AddError("A Place for Mom URL not configured")
		return result
	}

	resp, err := a.guard.Get(ctx, a.reviewsURL())
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch A Place for Mom page: %v", err))
		return result
	}

	doc, err := parseHTML(resp.Body())
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse A Place for Mom page: %v", err))
		return result
	}

	info := extractJSONLDAggregate(doc)
	extractMicrodataAggregate(doc, &info)
	result.AverageRating = info.AverageRating
	result.TotalCount = info.TotalCount
	result.Metadata["facility_name"] = info.FacilityName

	scraped := extractSchemaReviews(doc)
	if len(scraped) == 0 {
		scraped = extractClassReviews(doc, ".review-item, .review-card")
	}

	for _, s := range scraped {
		if review, ok := normalizeScraped("apfm", a.facilityURL, s); ok {
			result.AddReview(review)
		}
	}

	logrus.Infof("Fetched %d reviews from A Place for Mom", len(result.Reviews))

	return result
}

// reviewsURL points at the facility's /reviews page.
func (a *APlaceForMomSource) reviewsURL() string {
	base := strings.TrimRight(a.facilityURL, "/")
	if strings.Contains(base, "/reviews") {
		return base
	}
	return base + "/reviews"
}
