package notifications

import (
	"fmt"
	"testing"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier is a mock implementation of the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(payload *models.NotificationPayload) error {
	args := m.Called(payload)
	return args.Error(0)
}

func newDigestFixture(t *testing.T) (*DigestService, store.Store, *MockNotifier) {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:digest_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	notifier := &MockNotifier{}
	return NewDigestService(st, notifier), st, notifier
}

func seedReview(t *testing.T, st store.Store, platformID uint, id string, rating float64, label string, needsResponse bool) {
	t.Helper()
	require.NoError(t, st.CreateReview(&models.Review{
		PlatformID:       platformID,
		ExternalReviewID: id,
		Rating:           &rating,
		ReviewText:       "review " + id,
		SentimentLabel:   label,
		SentimentScore:   sentimentFor(label),
		NeedsResponse:    needsResponse,
	}))
}

func sentimentFor(label string) float64 {
	switch label {
	case "positive":
		return 0.8
	case "negative":
		return -0.8
	default:
		return 0.0
	}
}

func TestDigestService_Generate(t *testing.T) {
	digestService, st, _ := newDigestFixture(t)

	google := &models.Platform{Name: "google", IsActive: true}
	require.NoError(t, st.CreatePlatform(google))
	yelp := &models.Platform{Name: "yelp", IsActive: true}
	require.NoError(t, st.CreatePlatform(yelp))

	seedReview(t, st, google.ID, "g1", 5.0, "positive", false)
	seedReview(t, st, google.ID, "g2", 4.0, "positive", false)
	seedReview(t, st, google.ID, "g3", 1.0, "negative", true)
	seedReview(t, st, yelp.ID, "y1", 3.0, "neutral", true)

	digest, err := digestService.Generate()
	require.NoError(t, err)

	assert.Equal(t, 4, digest.TotalNewReviews)
	assert.Equal(t, 2, digest.PositiveReviews)
	assert.Equal(t, 1, digest.NegativeReviews)
	assert.Equal(t, 1, digest.NeutralReviews)
	assert.Equal(t, 2, digest.ResponsePending)

	require.NotNil(t, digest.AverageRating)
	assert.InDelta(t, 3.25, *digest.AverageRating, 0.001)

	assert.Equal(t, 3, digest.PlatformActivity["google"])
	assert.Equal(t, 1, digest.PlatformActivity["yelp"])

	// Notable reviews are sorted by sentiment magnitude.
	require.NotEmpty(t, digest.NotableReviews)
	assert.Equal(t, 0.8, abs(digest.NotableReviews[0].SentimentScore))
}

func TestDigestService_Generate_Empty(t *testing.T) {
	digestService, _, _ := newDigestFixture(t)

	digest, err := digestService.Generate()
	require.NoError(t, err)

	assert.Equal(t, 0, digest.TotalNewReviews)
	assert.Nil(t, digest.AverageRating)
	assert.Empty(t, digest.NotableReviews)
}

func TestDigestService_Send(t *testing.T) {
	digestService, st, notifier := newDigestFixture(t)

	google := &models.Platform{Name: "google", IsActive: true}
	require.NoError(t, st.CreatePlatform(google))
	seedReview(t, st, google.ID, "g1", 5.0, "positive", false)

	var delivered *models.NotificationPayload
	notifier.On("Notify", mock.Anything).Run(func(args mock.Arguments) {
		delivered = args.Get(0).(*models.NotificationPayload)
	}).Return(nil)

	digest, err := digestService.Send()
	require.NoError(t, err)
	assert.Equal(t, 1, digest.TotalNewReviews)

	require.NotNil(t, delivered)
	assert.Equal(t, "Weekly Review Digest", delivered.Title)
	assert.Equal(t, models.SeverityInfo, delivered.Severity)
	assert.Contains(t, delivered.Message, "New Reviews: 1")
	assert.Contains(t, delivered.Message, "google")
}

func TestDigestService_Send_NotifierFailureIsNotFatal(t *testing.T) {
	digestService, _, notifier := newDigestFixture(t)
	notifier.On("Notify", mock.Anything).Return(assert.AnError)

	digest, err := digestService.Send()
	require.NoError(t, err)
	assert.NotNil(t, digest)
}
