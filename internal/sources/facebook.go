package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	facebookGraphBaseURL = "https://graph.facebook.com/v18.0"
	facebookRatingsCap   = 500
)

// FacebookSource fetches page ratings through the Graph API. Facebook
// replaced star ratings with recommendations in 2018, so both shapes are
// handled: recommend maps to 5.0, don't-recommend to 1.0.
type FacebookSource struct {
	accessToken string
	pageID      string
	guard       *transport.Guard
}

type facebookPageInfo struct {
	Name              string  `json:"name"`
	OverallStarRating float64 `json:"overall_star_rating"`
	RatingCount       int     `json:"rating_count"`
}

type facebookRatingsResponse struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type facebookRating struct {
	Reviewer struct {
		Name string `json:"name"`
	} `json:"reviewer"`
	Rating             *float64 `json:"rating"`
	RecommendationType string   `json:"recommendation_type"`
	ReviewText         string   `json:"review_text"`
	CreatedTime        string   `json:"created_time"`
	OpenGraphStory     struct {
		ID string `json:"id"`
	} `json:"open_graph_story"`
}

// NewFacebookSource creates a Facebook Graph API adapter.
func NewFacebookSource(accessToken, pageID string, guard *transport.Guard) *FacebookSource {
	return &FacebookSource{accessToken: accessToken, pageID: pageID, guard: guard}
}

func (f *FacebookSource) Name() string { return "facebook" }

func (f *FacebookSource) Kind() models.APIType { return models.APITypeAPI }

func (f *FacebookSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if f.accessToken == "" || f.pageID == "" {
		result.Success = false
		result.AddError("Facebook API credentials not configured")
		return result
	}

	resp, err := f.guard.Get(ctx, fmt.Sprintf("%s/%s", facebookGraphBaseURL, f.pageID),
		transport.WithQueryParams(map[string]string{
			"access_token": f.accessToken,
			"fields":       "name,overall_star_rating,rating_count,link",
		}))
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch page info: %v", err))
		return result
	}

	var pageInfo facebookPageInfo
	if err := json.Unmarshal(resp.Body(), &pageInfo); err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse page info: %v", err))
		return result
	}

	result.AverageRating = floatPtr(pageInfo.OverallStarRating)
	result.TotalCount = intPtr(pageInfo.RatingCount)
	result.Metadata["page_name"] = pageInfo.Name

	f.fetchRatings(ctx, result)

	logrus.Infof("Fetched %d reviews from Facebook (total %d, average %.1f)",
		len(result.Reviews), pageInfo.RatingCount, pageInfo.OverallStarRating)

	return result
}

// fetchRatings walks the /ratings pagination until exhausted or the safety
// cap is hit. A failed page surfaces as an error but keeps what was already
// collected.
func (f *FacebookSource) fetchRatings(ctx context.Context, result *models.AdapterResult) {
	url := fmt.Sprintf("%s/%s/ratings", facebookGraphBaseURL, f.pageID)
	opts := []transport.RequestOption{
		transport.WithQueryParams(map[string]string{
			"access_token": f.accessToken,
			"fields":       "reviewer,rating,recommendation_type,review_text,created_time,open_graph_story",
			"limit":        "100",
		}),
	}

	for {
		resp, err := f.guard.Get(ctx, url, opts...)
		if err != nil {
			result.AddError(fmt.Sprintf("failed to fetch ratings page: %v", err))
			return
		}

		var page facebookRatingsResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			result.AddError(fmt.Sprintf("failed to parse ratings page: %v", err))
			return
		}

		for _, raw := range page.Data {
			review, err := f.parseRating(raw)
			if err != nil {
				result.AddError(fmt.Sprintf("failed to parse review: %v", err))
				continue
			}
			result.AddReview(review)
		}

		if page.Paging.Next == "" || len(result.Reviews) >= facebookRatingsCap {
			return
		}

		// The next URL carries all query parameters already.
		url = page.Paging.Next
		opts = nil
	}
}

func (f *FacebookSource) parseRating(raw json.RawMessage) (models.NormalizedReview, error) {
	var rating facebookRating
	if err := json.Unmarshal(raw, &rating); err != nil {
		return models.NormalizedReview{}, err
	}

	stars := rating.Rating
	if stars == nil {
		switch rating.RecommendationType {
		case "positive":
			stars = floatPtr(5.0)
		case "negative":
			stars = floatPtr(1.0)
		}
	}

	externalID := rating.OpenGraphStory.ID
	if externalID == "" {
		externalID = stableExternalID("facebook",
			rating.Reviewer.Name, rating.ReviewText, rating.CreatedTime)
	} else {
		externalID = "facebook_" + externalID
	}

	return models.NormalizedReview{
		ExternalID:   externalID,
		ReviewerName: rating.Reviewer.Name,
		Rating:       stars,
		ReviewText:   rating.ReviewText,
		ReviewDate:   parseDate(rating.CreatedTime),
		RawJSON:      string(raw),
	}, nil
}
