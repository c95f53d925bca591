package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	medicareBaseURL             = "https://data.cms.gov/provider-data/api/1/datastore/query"
	medicareProviderInfoDataset = "4pq5-n9py"
)

// MedicareSource pulls quality star ratings from the Medicare Care Compare
// public dataset. Medicare has no individual reviews, so the overall rating
// becomes one synthetic review that can sit alongside real ones.
type MedicareSource struct {
	providerID string
	guard      *transport.Guard
}

type medicareQueryResponse struct {
	Results []map[string]interface{} `json:"results"`
}

// NewMedicareSource creates a Care Compare adapter.
func NewMedicareSource(providerID string, guard *transport.Guard) *MedicareSource {
	return &MedicareSource{providerID: providerID, guard: guard}
}

func (m *MedicareSource) Name() string { return "medicare" }

func (m *MedicareSource) Kind() models.APIType { return models.APITypeAPI }

func (m *MedicareSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	result := &models.AdapterResult{Success: true, Metadata: map[string]string{}}

	if m.providerID == "" {
		result.Success = false
		result.AddError("Medicare provider ID not configured")
		return result
	}

	resp, err := m.guard.Get(ctx, fmt.Sprintf("%s/%s", medicareBaseURL, medicareProviderInfoDataset),
		transport.WithQueryParams(map[string]string{
			"conditions[0][property]": "federal_provider_number",
			"conditions[0][value]":    m.providerID,
			"conditions[0][operator]": "=",
		}))
	if err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to fetch provider info: %v", err))
		return result
	}

	var query medicareQueryResponse
	if err := json.Unmarshal(resp.Body(), &query); err != nil {
		result.Success = false
		result.AddError(fmt.Sprintf("failed to parse provider info: %v", err))
		return result
	}

	if len(query.Results) == 0 {
		result.Success = false
		result.AddError("provider not found in Medicare database")
		return result
	}

	provider := query.Results[0]
	overall := starRating(provider["overall_rating"])
	if overall == nil {
		// The dataset row exists but carries no usable rating, so the fetch
		// produced nothing. Reporting success here would record an empty
		// snapshot.
		result.Success = false
		result.AddError("provider has no overall rating")
		return result
	}

	result.AverageRating = overall
	result.TotalCount = intPtr(1) // Medicare only publishes aggregate ratings
	result.Metadata["provider_name"] = stringField(provider, "provider_name")

	dataDate := stringField(provider, "processing_date")
	raw, _ := json.Marshal(provider)

	result.AddReview(models.NormalizedReview{
		// Keyed on the dataset's processing date so a refreshed dataset
		// updates the same review rather than creating a new one per run.
		ExternalID:   fmt.Sprintf("medicare_%s_%s", m.providerID, shortHash(dataDate)),
		ReviewerName: "Medicare Care Compare",
		Rating:       overall,
		ReviewText:   m.ratingSummary(provider),
		ReviewDate:   parseDate(dataDate),
		RawJSON:      string(raw),
	})

	logrus.Infof("Fetched Medicare quality rating %.1f for provider %s", *overall, m.providerID)

	return result
}

func (m *MedicareSource) ratingSummary(provider map[string]interface{}) string {
	lines := []string{
		"Medicare Care Compare Quality Rating Summary",
		"",
		fmt.Sprintf("Overall Rating: %s / 5 stars", starText(provider["overall_rating"])),
		fmt.Sprintf("Health Inspection: %s / 5 stars", starText(provider["health_inspection_rating"])),
		fmt.Sprintf("Staffing: %s / 5 stars", starText(provider["staffing_rating"])),
		fmt.Sprintf("Quality Measures: %s / 5 stars", starText(provider["qm_rating"])),
	}

	if survey := stringField(provider, "date_of_last_standard_health_inspection"); survey != "" {
		lines = append(lines, "", "Last Inspection: "+survey)
	}

	return strings.Join(lines, "\n")
}

// starRating coerces the dataset's loosely typed rating fields to a float.
func starRating(value interface{}) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func starText(value interface{}) string {
	if rating := starRating(value); rating != nil {
		return strconv.FormatFloat(*rating, 'f', -1, 64)
	}
	return "N/A"
}

func stringField(record map[string]interface{}, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}
