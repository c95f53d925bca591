package sources

import (
	"context"
	"fmt"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

// SeniorAdvisorSource scrapes a facility's page on senioradvisor.com.
type SeniorAdvisorSource struct {
	facilityURL string
	guard       *transport.Guard
}

// NewSeniorAdvisorSource creates a SeniorAdvisor scrape adapter.
func NewSeniorAdvisorSource(facilityURL string, guard *transport.Guard) *SeniorAdvisorSource {
	return &SeniorAdvisorSource{facilityURL: facilityURL, guard: guard}
}

func (s *SeniorAdvisorSource) Name() string { return "senioradvisor" }

func (s *SeniorAdvisorSource) Kind() models.APIType { return models.APITypeScrape }

func (s *SeniorAdvisorSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if s.facilityURL == "" {
		result.Success = false
		result.AddError("SeniorAdvisor URL not configured")
		return result
	}

	resp, err := s.guard.Get(ctx, s.facilityURL)
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch SeniorAdvisor page: %v", err))
		return result
	}

	doc, err := parseHTML(resp.Body())
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse SeniorAdvisor page: %v", err))
		return result
	}

	info := extractJSONLDAggregate(doc)
	extractMicrodataAggregate(doc, &info)
	result.AverageRating = info.AverageRating
	result.TotalCount = info.TotalCount
	result.Metadata["facility_name"] = info.FacilityName

	scraped := extractSchemaReviews(doc)
	if len(scraped) == 0 {
		scraped = extractClassReviews(doc, ".review, .review-card")
	}

	for _, r := range scraped {
		if review, ok := normalizeScraped("senioradvisor", s.facilityURL, r); ok {
			result.AddReview(review)
		}
	}

	logrus.Infof("Fetched %d reviews from SeniorAdvisor", len(result.Reviews))

	return result
}
