package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sagehouse/reviews-bot/internal/alerts"
	"github.com/sagehouse/reviews-bot/internal/config"
	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/sources"
	"github.com/sagehouse/reviews-bot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource feeds canned adapter results into the pipeline.
type stubSource struct {
	name    string
	kind    models.APIType
	results []*models.AdapterResult
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Kind() models.APIType {
	if s.kind == "" {
		return models.APITypeAPI
	}
	return s.kind
}

func (s *stubSource) FetchReviews(ctx context.Context) *models.AdapterResult {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]
}

func testConfig() *config.Config {
	return &config.Config{
		SentimentAnalyzer:      "keyword",
		MaxConcurrentPlatforms: 2,
		RateLimitPerMinute:     6000,
		RequestTimeoutSecs:     5,
	}
}

func newTestService(t *testing.T, stubs ...sources.Source) (*Service, store.Store) {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:sync_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	alertService := alerts.NewService(st, nil)
	service := NewService(testConfig(), st, alertService, nil)
	for _, stub := range stubs {
		service.registry.Register(stub)
	}
	return service, st
}

func normalized(id string, rating float64, text string) models.NormalizedReview {
	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return models.NormalizedReview{
		ExternalID:   id,
		ReviewerName: "Reviewer " + id,
		Rating:       &rating,
		ReviewText:   text,
		ReviewDate:   &date,
		RawJSON:      `{}`,
	}
}

func successResult(reviews ...models.NormalizedReview) *models.AdapterResult {
	return &models.AdapterResult{Success: true, Reviews: reviews}
}

func TestService_SyncPlatform_CreatesAndUpdates(t *testing.T) {
	stub := &stubSource{
		name: "google",
		results: []*models.AdapterResult{
			successResult(
				normalized("g1", 5.0, "Wonderful caring staff"),
				normalized("g2", 4.0, "Clean and friendly"),
			),
			successResult(
				normalized("g1", 5.0, "Wonderful caring staff, updated"),
				normalized("g2", 4.0, "Clean and friendly"),
				normalized("g3", 3.0, "Average"),
			),
		},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	summary, err := service.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalNewReviews)
	assert.Equal(t, 0, summary.TotalUpdatedReviews)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Success)

	// Second run: one new review, the rest update in place.
	summary, err = service.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalNewReviews)
	assert.Equal(t, 2, summary.TotalUpdatedReviews)

	platforms, err := st.ListActivePlatforms()
	require.NoError(t, err)
	require.Len(t, platforms, 1)

	stored, err := st.ListReviewsByPlatform(platforms[0].ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	updated, err := st.GetReviewByExternalID(platforms[0].ID, "g1")
	require.NoError(t, err)
	assert.Contains(t, updated.ReviewText, "updated")
}

func TestService_SyncPlatform_ScoresSentiment(t *testing.T) {
	stub := &stubSource{
		name: "google",
		results: []*models.AdapterResult{
			successResult(
				normalized("good", 5.0, "Wonderful caring attentive staff, excellent"),
				normalized("bad", 1.0, "Terrible dirty rooms, rude staff, awful"),
			),
		},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)

	platforms, _ := st.ListActivePlatforms()
	good, err := st.GetReviewByExternalID(platforms[0].ID, "good")
	require.NoError(t, err)
	assert.Equal(t, "positive", good.SentimentLabel)
	assert.False(t, good.NeedsResponse)

	bad, err := st.GetReviewByExternalID(platforms[0].ID, "bad")
	require.NoError(t, err)
	assert.Equal(t, "negative", bad.SentimentLabel)
	assert.True(t, bad.NeedsResponse)
}

func TestService_SyncPlatform_NeedsResponseOnLowRating(t *testing.T) {
	// Rating of three flags for response even with neutral text.
	stub := &stubSource{
		name: "google",
		results: []*models.AdapterResult{
			successResult(normalized("r1", 3.0, "We toured the facility on Tuesday")),
		},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)

	platforms, _ := st.ListActivePlatforms()
	review, err := st.GetReviewByExternalID(platforms[0].ID, "r1")
	require.NoError(t, err)
	assert.True(t, review.NeedsResponse)
}

func TestService_SyncPlatform_RaisesAlertOnceOnCreate(t *testing.T) {
	stub := &stubSource{
		name: "google",
		results: []*models.AdapterResult{
			successResult(normalized("bad1", 1.0, "Awful neglectful place")),
		},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)

	negatives, err := st.ListAlerts("", models.AlertNegativeReview, 0, 0)
	require.NoError(t, err)
	require.Len(t, negatives, 1)
	assert.Equal(t, models.SeverityHigh, negatives[0].Severity)

	// Re-syncing the same review is an update, not a new alert.
	_, err = service.SyncAll(context.Background())
	require.NoError(t, err)

	negatives, err = st.ListAlerts("", models.AlertNegativeReview, 0, 0)
	require.NoError(t, err)
	assert.Len(t, negatives, 1)
}

func TestService_SyncPlatform_PartialFailure(t *testing.T) {
	healthy := &stubSource{
		name:    "google",
		results: []*models.AdapterResult{successResult(normalized("g1", 4.0, "Nice"))},
	}
	broken := &stubSource{
		name: "yelp",
		results: []*models.AdapterResult{{
			Success: false,
			Errors:  []string{"yelp API returned status 500"},
		}},
	}
	service, st := newTestService(t, healthy, broken)
	require.NoError(t, service.EnsurePlatforms())

	summary, err := service.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PlatformsSynced)
	assert.Equal(t, 1, summary.TotalNewReviews)

	byName := make(map[string]models.SyncResult)
	for _, r := range summary.Results {
		byName[r.PlatformName] = r
	}
	assert.True(t, byName["google"].Success)
	assert.False(t, byName["yelp"].Success)
	assert.NotEmpty(t, byName["yelp"].Errors)

	// Only the successful platform advances its sync cursor.
	platforms, err := st.ListActivePlatforms()
	require.NoError(t, err)
	for _, p := range platforms {
		if p.Name == "google" {
			assert.NotNil(t, p.LastSync)
		} else {
			assert.Nil(t, p.LastSync)
		}
	}
}

func TestService_SyncPlatform_NoAdapter(t *testing.T) {
	service, st := newTestService(t)

	platform := &models.Platform{Name: "tripadvisor", IsActive: true}
	require.NoError(t, st.CreatePlatform(platform))

	result := service.SyncPlatform(context.Background(), platform)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no adapter for platform")
}

func TestService_Snapshots(t *testing.T) {
	avg := 4.4
	total := 120
	stub := &stubSource{
		name: "google",
		results: []*models.AdapterResult{{
			Success:       true,
			Reviews:       []models.NormalizedReview{normalized("g1", 5.0, "Wonderful caring staff")},
			AverageRating: &avg,
			TotalCount:    &total,
		}},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)

	platforms, _ := st.ListActivePlatforms()
	snapshots, err := st.LatestSnapshots(platforms[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snapshot := snapshots[0]
	// Source-reported aggregates win over locally computed ones: the API
	// saw 120 reviews even though we only fetched one.
	assert.Equal(t, 120, snapshot.TotalReviews)
	require.NotNil(t, snapshot.AverageRating)
	assert.Equal(t, 4.4, *snapshot.AverageRating)
	assert.Equal(t, 1, snapshot.NewReviewsCount)
	assert.Equal(t, 1, snapshot.PositiveCount)
}

func TestService_Snapshots_RecordedOnQuietRun(t *testing.T) {
	stub := &stubSource{
		name:    "google",
		results: []*models.AdapterResult{successResult()},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)
	_, err = service.SyncAll(context.Background())
	require.NoError(t, err)

	platforms, _ := st.ListActivePlatforms()
	snapshots, err := st.LatestSnapshots(platforms[0].ID, 10)
	require.NoError(t, err)
	// A snapshot per run, even with nothing new.
	assert.Len(t, snapshots, 2)
}

func TestService_Snapshots_SkippedOnFailedFetch(t *testing.T) {
	avg := 4.5
	stub := &stubSource{
		name: "google",
		results: []*models.AdapterResult{
			{
				Success:       true,
				Reviews:       []models.NormalizedReview{normalized("g1", 4.5, "Lovely place")},
				AverageRating: &avg,
			},
			{
				Success: false,
				Errors:  []string{"google API returned status 503"},
			},
		},
	}
	service, st := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)
	_, err = service.SyncAll(context.Background())
	require.NoError(t, err)

	platforms, _ := st.ListActivePlatforms()
	snapshots, err := st.LatestSnapshots(platforms[0].ID, 10)
	require.NoError(t, err)
	// The outage run leaves no snapshot. A snapshot computed from the one
	// locally stored review would read as a rating collapse against the
	// source-reported 4.5 and page someone for nothing.
	require.Len(t, snapshots, 1)

	alertService := alerts.NewService(st, nil)
	dropped, err := alertService.CheckRatingDrop(platforms[0].ID, 0)
	require.NoError(t, err)
	assert.False(t, dropped)

	drops, err := st.ListAlerts("", models.AlertRatingDrop, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, drops)
}

func TestService_EnsurePlatforms_AdapterKind(t *testing.T) {
	api := &stubSource{name: "google", results: []*models.AdapterResult{successResult()}}
	scrape := &stubSource{
		name:    "caring",
		kind:    models.APITypeScrape,
		results: []*models.AdapterResult{successResult()},
	}
	service, st := newTestService(t, api, scrape)
	require.NoError(t, service.EnsurePlatforms())

	platforms, err := st.ListActivePlatforms()
	require.NoError(t, err)
	require.Len(t, platforms, 2)

	kinds := make(map[string]models.APIType)
	for _, p := range platforms {
		kinds[p.Name] = p.APIType
	}
	assert.Equal(t, models.APITypeAPI, kinds["google"])
	assert.Equal(t, models.APITypeScrape, kinds["caring"])
}

func TestService_SyncByIDs(t *testing.T) {
	google := &stubSource{
		name:    "google",
		results: []*models.AdapterResult{successResult(normalized("g1", 4.0, "Nice"))},
	}
	yelp := &stubSource{
		name:    "yelp",
		results: []*models.AdapterResult{successResult(normalized("y1", 4.0, "Nice"))},
	}
	service, st := newTestService(t, google, yelp)
	require.NoError(t, service.EnsurePlatforms())

	platforms, err := st.ListActivePlatforms()
	require.NoError(t, err)

	var yelpID uint
	for _, p := range platforms {
		if p.Name == "yelp" {
			yelpID = p.ID
		}
	}

	summary, err := service.SyncByIDs(context.Background(), []uint{yelpID})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PlatformsSynced)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "yelp", summary.Results[0].PlatformName)
	assert.Equal(t, 0, google.calls)
}

func TestService_EnsurePlatforms_Idempotent(t *testing.T) {
	stub := &stubSource{name: "google", results: []*models.AdapterResult{successResult()}}
	service, st := newTestService(t, stub)

	require.NoError(t, service.EnsurePlatforms())
	require.NoError(t, service.EnsurePlatforms())

	platforms, err := st.ListActivePlatforms()
	require.NoError(t, err)
	assert.Len(t, platforms, 1)
}

func TestService_LastRun(t *testing.T) {
	stub := &stubSource{name: "google", results: []*models.AdapterResult{successResult()}}
	service, _ := newTestService(t, stub)
	require.NoError(t, service.EnsurePlatforms())

	assert.Nil(t, service.LastRun())

	_, err := service.SyncAll(context.Background())
	require.NoError(t, err)

	last := service.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, 1, last.PlatformsSynced)
}
