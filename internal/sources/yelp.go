package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

const yelpBaseURL = "https://api.yelp.com/v3"

// YelpSource fetches reviews through the Yelp Fusion API. Fusion caps the
// number of reviews per request; the business endpoint still reports the
// full rating and count.
type YelpSource struct {
	apiKey     string
	businessID string
	guard      *transport.Guard
}

type yelpBusiness struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

type yelpReviewsResponse struct {
	Reviews []json.RawMessage `json:"reviews"`
}

type yelpReview struct {
	ID   string `json:"id"`
	User struct {
		Name       string `json:"name"`
		ProfileURL string `json:"profile_url"`
	} `json:"user"`
	Rating      float64 `json:"rating"`
	Text        string  `json:"text"`
	TimeCreated string  `json:"time_created"`
}

// NewYelpSource creates a Yelp Fusion adapter.
func NewYelpSource(apiKey, businessID string, guard *transport.Guard) *YelpSource {
	return &YelpSource{apiKey: apiKey, businessID: businessID, guard: guard}
}

func (y *YelpSource) Name() string { return "yelp" }

func (y *YelpSource) Kind() models.APIType { return models.APITypeAPI }

func (y *YelpSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if y.apiKey == "" || y.businessID == "" {
		result.Success = false
		result.AddError("Yelp API credentials not configured")
		return result
	}

	auth := transport.WithHeader("Authorization", "Bearer "+y.apiKey)

	resp, err := y.guard.Get(ctx, fmt.Sprintf("%s/businesses/%s", yelpBaseURL, y.businessID), auth)
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch business details: %v", err))
		return result
	}

	var business yelpBusiness
	if err := json.Unmarshal(resp.Body(), &business); err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse business details: %v", err))
		return result
	}

	result.AverageRating = floatPtr(business.Rating)
	result.TotalCount = intPtr(business.ReviewCount)
	result.Metadata["business_name"] = business.Name
	result.Metadata["url"] = business.URL

	resp, err = y.guard.Get(ctx, fmt.Sprintf("%s/businesses/%s/reviews", yelpBaseURL, y.businessID),
		auth,
		transport.WithQueryParams(map[string]string{
			"limit":   "50",
			"sort_by": "newest",
		}))
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch reviews: %v", err))
		return result
	}

	var reviewsResp yelpReviewsResponse
	if err := json.Unmarshal(resp.Body(), &reviewsResp); err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse reviews: %v", err))
		return result
	}

	for _, raw := range reviewsResp.Reviews {
		var review yelpReview
		if err := json.Unmarshal(raw, &review); err != nil {
			result.AddError(fmt.Sprintf("failed to parse review: %v", err))
			continue
		}

		result.AddReview(models.NormalizedReview{
			ExternalID:         review.ID,
			ReviewerName:       review.User.Name,
			ReviewerProfileURL: review.User.ProfileURL,
			Rating:             floatPtr(review.Rating),
			ReviewText:         review.Text,
			ReviewDate:         parseDate(review.TimeCreated),
			RawJSON:            string(raw),
		})
	}

	logrus.Infof("Fetched %d reviews from Yelp (total %d, average %.1f)",
		len(result.Reviews), business.ReviewCount, business.Rating)

	return result
}
