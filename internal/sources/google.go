package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

const googlePlacesBaseURL = "https://maps.googleapis.com/maps/api/place"

// GoogleSource fetches reviews through the Google Places Details API. The
// API only returns the five most relevant reviews, but also reports the
// true population size and average, which snapshots prefer.
type GoogleSource struct {
	apiKey  string
	placeID string
	guard   *transport.Guard
}

type googleDetailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name             string            `json:"name"`
		FormattedAddress string            `json:"formatted_address"`
		Rating           float64           `json:"rating"`
		UserRatingsTotal int               `json:"user_ratings_total"`
		Reviews          []json.RawMessage `json:"reviews"`
	} `json:"result"`
}

type googleReview struct {
	AuthorName string  `json:"author_name"`
	AuthorURL  string  `json:"author_url"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"`
}

// NewGoogleSource creates a Google Places adapter.
func NewGoogleSource(apiKey, placeID string, guard *transport.Guard) *GoogleSource {
	return &GoogleSource{apiKey: apiKey, placeID: placeID, guard: guard}
}

func (g *GoogleSource) Name() string { return "google" }

func (g *GoogleSource) Kind() models.APIType { return models.APITypeAPI }

func (g *GoogleSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if g.apiKey == "" || g.placeID == "" {
		result.Success = false
		result.AddError("Google Places API credentials not configured")
		return result
	}

	resp, err := g.guard.Get(ctx, googlePlacesBaseURL+"/details/json",
		transport.WithQueryParams(map[string]string{
			"place_id":     g.placeID,
			"key":          g.apiKey,
			"fields":       "name,formatted_address,rating,user_ratings_total,reviews",
			"reviews_sort": "newest",
		}))
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch place details: %v", err))
		return result
	}

	var details googleDetailsResponse
	if err := json.Unmarshal(resp.Body(), &details); err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse place details: %v", err))
		return result
	}

	if details.Status != "OK" {
		result.Success = false
		msg := details.ErrorMessage
		if msg == "" {
			msg = details.Status
		}
		result.AddError(fmt.Sprintf("Google API error: %s", msg))
		return result
	}

	result.AverageRating = floatPtr(details.Result.Rating)
	result.TotalCount = intPtr(details.Result.UserRatingsTotal)
	result.Metadata["place_name"] = details.Result.Name
	result.Metadata["formatted_address"] = details.Result.FormattedAddress

	for _, raw := range details.Result.Reviews {
		review, err := g.parseReview(raw)
		if err != nil {
			// One malformed review must not fail the whole fetch.
			result.AddError(fmt.Sprintf("failed to parse review: %v", err))
			continue
		}
		result.AddReview(review)
	}

	logrus.Infof("Fetched %d reviews from Google (total %d, average %.1f)",
		len(result.Reviews), details.Result.UserRatingsTotal, details.Result.Rating)

	return result
}

func (g *GoogleSource) parseReview(raw json.RawMessage) (models.NormalizedReview, error) {
	var review googleReview
	if err := json.Unmarshal(raw, &review); err != nil {
		return models.NormalizedReview{}, err
	}

	var reviewDate *time.Time
	if review.Time > 0 {
		t := time.Unix(review.Time, 0).UTC()
		reviewDate = &t
	}

	return models.NormalizedReview{
		ExternalID:         fmt.Sprintf("google_%d_%s", review.Time, shortHash(review.AuthorName)),
		ReviewerName:       review.AuthorName,
		ReviewerProfileURL: review.AuthorURL,
		Rating:             floatPtr(review.Rating),
		ReviewText:         review.Text,
		ReviewDate:         reviewDate,
		RawJSON:            string(raw),
	}, nil
}
