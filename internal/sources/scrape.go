package sources

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sagehouse/reviews-bot/internal/models"
)

// Shared extraction helpers for the scrape-based adapters. Listing sites
// differ in markup but most carry schema.org annotations, so extraction
// tries JSON-LD structured data first, then itemprop microdata, then
// site-specific class selectors.

var numberPattern = regexp.MustCompile(`(\d+\.?\d*)`)

type aggregateInfo struct {
	FacilityName  string
	AverageRating *float64
	TotalCount    *int
}

type scrapedReview struct {
	Author     string
	RatingText string
	Text       string
	DateText   string
}

// parseHTML builds a goquery document from a fetched page body.
func parseHTML(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

// extractJSONLDAggregate reads schema.org AggregateRating blocks embedded as
// JSON-LD.
func extractJSONLDAggregate(doc *goquery.Document) aggregateInfo {
	var info aggregateInfo

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// Sites emit ratingValue/reviewCount as either numbers or strings.
		var data struct {
			Name            string `json:"name"`
			AggregateRating *struct {
				RatingValue interface{} `json:"ratingValue"`
				ReviewCount interface{} `json:"reviewCount"`
			} `json:"aggregateRating"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}

		if data.Name != "" {
			info.FacilityName = data.Name
		}
		if data.AggregateRating != nil {
			if rating := looseNumber(data.AggregateRating.RatingValue); rating != nil {
				info.AverageRating = rating
			}
			if count := looseNumber(data.AggregateRating.ReviewCount); count != nil {
				info.TotalCount = intPtr(int(*count))
			}
		}

		return info.AverageRating == nil
	})

	return info
}

// extractMicrodataAggregate falls back to itemprop markup for pages without
// JSON-LD.
func extractMicrodataAggregate(doc *goquery.Document, info *aggregateInfo) {
	if info.AverageRating == nil {
		if value := itempropValue(doc.Find(`[itemprop="ratingValue"]`).First()); value != "" {
			info.AverageRating = firstNumber(value)
		}
	}
	if info.TotalCount == nil {
		if value := itempropValue(doc.Find(`[itemprop="reviewCount"]`).First()); value != "" {
			if n := firstNumber(value); n != nil {
				info.TotalCount = intPtr(int(*n))
			}
		}
	}
	if info.FacilityName == "" {
		info.FacilityName = strings.TrimSpace(doc.Find("h1").First().Text())
	}
}

// extractSchemaReviews pulls per-review microdata containers.
func extractSchemaReviews(doc *goquery.Document) []scrapedReview {
	var reviews []scrapedReview

	doc.Find(`[itemprop="review"]`).Each(func(_ int, container *goquery.Selection) {
		reviews = append(reviews, scrapedReview{
			Author:     strings.TrimSpace(container.Find(`[itemprop="author"]`).First().Text()),
			RatingText: itempropValue(container.Find(`[itemprop="ratingValue"]`).First()),
			Text:       strings.TrimSpace(container.Find(`[itemprop="reviewBody"]`).First().Text()),
			DateText:   itempropValue(container.Find(`[itemprop="datePublished"]`).First()),
		})
	})

	return reviews
}

// extractClassReviews is the last-resort extraction over site-specific
// container selectors.
func extractClassReviews(doc *goquery.Document, containerSelector string) []scrapedReview {
	var reviews []scrapedReview

	doc.Find(containerSelector).Each(func(_ int, container *goquery.Selection) {
		rating := container.Find(".rating, .stars, .score").First()
		ratingText, _ := rating.Attr("aria-label")
		if ratingText == "" {
			ratingText = rating.Text()
		}

		reviews = append(reviews, scrapedReview{
			Author:     strings.TrimSpace(container.Find(".author, .reviewer, .name").First().Text()),
			RatingText: ratingText,
			Text:       strings.TrimSpace(container.Find(".review-text, .review-body, .content, .comment").First().Text()),
			DateText:   strings.TrimSpace(container.Find(".date, .time").First().Text()),
		})
	})

	return reviews
}

// normalizeScraped converts a scraped container into a NormalizedReview.
// Containers without any rating or text are discarded as navigation noise.
func normalizeScraped(prefix, sourceURL string, scraped scrapedReview) (models.NormalizedReview, bool) {
	rating := firstNumber(scraped.RatingText)
	if rating == nil && scraped.Text == "" {
		return models.NormalizedReview{}, false
	}

	raw, _ := json.Marshal(map[string]string{
		"author":     scraped.Author,
		"rating":     scraped.RatingText,
		"text":       scraped.Text,
		"date":       scraped.DateText,
		"source_url": sourceURL,
	})

	return models.NormalizedReview{
		ExternalID:   stableExternalID(prefix, scraped.Author, scraped.Text, scraped.DateText),
		ReviewerName: scraped.Author,
		Rating:       rating,
		ReviewText:   scraped.Text,
		ReviewDate:   parseDate(scraped.DateText),
		RawJSON:      string(raw),
	}, true
}

// itempropValue prefers a content attribute over element text.
func itempropValue(s *goquery.Selection) string {
	if content, ok := s.Attr("content"); ok && content != "" {
		return content
	}
	return strings.TrimSpace(s.Text())
}

// looseNumber coerces a loosely typed JSON value to a float.
func looseNumber(value interface{}) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &parsed
		}
	}
	return nil
}

// firstNumber extracts the first decimal number from a string.
func firstNumber(value string) *float64 {
	match := numberPattern.FindString(value)
	if match == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
