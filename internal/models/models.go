package models

import "time"

// APIType describes how a platform is accessed.
type APIType string

const (
	APITypeAPI    APIType = "api"
	APITypeScrape APIType = "scrape"
)

// AlertType enumerates the events that raise alerts.
type AlertType string

const (
	AlertNegativeReview AlertType = "negative_review"
	AlertLowRating      AlertType = "low_rating"
	AlertResponseNeeded AlertType = "response_needed"
	AlertRatingDrop     AlertType = "rating_drop"
	AlertNewReview      AlertType = "new_review"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertPending      AlertStatus = "pending"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertDismissed    AlertStatus = "dismissed"
)

// Severity levels used by alerts and notifications.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
	SeverityInfo   = "info"
)

// Platform is a configured review source (Google, Yelp, etc.).
type Platform struct {
	ID             uint              `json:"id" gorm:"primaryKey"`
	Name           string            `json:"name" gorm:"size:100;uniqueIndex;not null"`
	BaseURL        string            `json:"base_url" gorm:"size:500"`
	APIType        APIType           `json:"api_type" gorm:"size:20;default:api"`
	CredentialsRef string            `json:"credentials_ref" gorm:"size:100"` // env var name, never the secret itself
	LastSync       *time.Time        `json:"last_sync"`
	IsActive       bool              `json:"is_active" gorm:"default:true"`
	Config         map[string]string `json:"config" gorm:"serializer:json"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Review is a stored review from any platform. The (PlatformID,
// ExternalReviewID) pair is the dedup key for upserts.
type Review struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	PlatformID         uint       `json:"platform_id" gorm:"not null;uniqueIndex:uq_platform_review"`
	ExternalReviewID   string     `json:"external_review_id" gorm:"size:255;not null;uniqueIndex:uq_platform_review"`
	ReviewerName       string     `json:"reviewer_name" gorm:"size:255"`
	ReviewerProfileURL string     `json:"reviewer_profile_url" gorm:"size:500"`
	Rating             *float64   `json:"rating" gorm:"index"` // normalized to the 0-5 scale
	ReviewText         string     `json:"review_text"`
	ReviewDate         *time.Time `json:"review_date" gorm:"index"` // nil when the source date could not be parsed

	SentimentScore float64 `json:"sentiment_score" gorm:"index"` // -1..1
	SentimentLabel string  `json:"sentiment_label" gorm:"size:20"`

	ResponseText  string     `json:"response_text"`
	ResponseDate  *time.Time `json:"response_date"`
	NeedsResponse bool       `json:"needs_response"`

	RawJSON   string    `json:"raw_json"` // source payload preserved for audit
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewSnapshot is an append-only point-in-time aggregate of a platform's
// metrics, recorded after every sync for trend comparison.
type ReviewSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PlatformID   uint      `json:"platform_id" gorm:"not null;index:ix_snapshots_platform_date"`
	SnapshotDate time.Time `json:"snapshot_date" gorm:"index:ix_snapshots_platform_date"`

	TotalReviews    int      `json:"total_reviews"`
	AverageRating   *float64 `json:"average_rating"`
	NewReviewsCount int      `json:"new_reviews_count"`

	PositiveCount int      `json:"positive_count"`
	NegativeCount int      `json:"negative_count"`
	NeutralCount  int      `json:"neutral_count"`
	ResponseRate  *float64 `json:"response_rate"` // responded/total, nil when no reviews

	CreatedAt time.Time `json:"created_at"`
}

// Alert is a typed event raised by the pipeline. At most one alert per
// (ReviewID, Type) pair may be pending or acknowledged at a time.
type Alert struct {
	ID       uint        `json:"id" gorm:"primaryKey"`
	ReviewID *uint       `json:"review_id" gorm:"index"`
	Type     AlertType   `json:"type" gorm:"size:30;not null;index:ix_alerts_type"`
	Status   AlertStatus `json:"status" gorm:"size:20;default:pending;index:ix_alerts_status"`

	Title    string `json:"title" gorm:"size:255;not null"`
	Message  string `json:"message"`
	Severity string `json:"severity" gorm:"size:20;default:medium"`

	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}

// NormalizedReview is the canonical adapter output for a single review,
// before it has been stored or scored.
type NormalizedReview struct {
	ExternalID         string     `json:"external_id"`
	ReviewerName       string     `json:"reviewer_name"`
	ReviewerProfileURL string     `json:"reviewer_profile_url"`
	Rating             *float64   `json:"rating"` // 0-5 scale
	ReviewText         string     `json:"review_text"`
	ReviewDate         *time.Time `json:"review_date"` // nil means the source date was unparseable
	RawJSON            string     `json:"raw_json"`
}

// AdapterResult is what a source adapter returns from one fetch. Adapters
// never propagate errors directly; all failure detail lands in Errors.
type AdapterResult struct {
	Success       bool               `json:"success"`
	Reviews       []NormalizedReview `json:"reviews"`
	TotalCount    *int               `json:"total_count,omitempty"`    // source-reported population, may exceed fetched
	AverageRating *float64           `json:"average_rating,omitempty"` // source-reported aggregate
	Errors        []string           `json:"errors,omitempty"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

// AddError records a failure on the result.
func (r *AdapterResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddReview appends a normalized review to the result.
func (r *AdapterResult) AddReview(review NormalizedReview) {
	r.Reviews = append(r.Reviews, review)
}

// SyncResult is the per-platform outcome of a sync run.
type SyncResult struct {
	PlatformID     uint     `json:"platform_id"`
	PlatformName   string   `json:"platform_name"`
	Success        bool     `json:"success"`
	NewReviews     int      `json:"new_reviews"`
	UpdatedReviews int      `json:"updated_reviews"`
	Errors         []string `json:"errors,omitempty"`
}

// SyncSummary aggregates the results of syncing a set of platforms.
type SyncSummary struct {
	SyncedAt            time.Time    `json:"synced_at"`
	PlatformsSynced     int          `json:"platforms_synced"`
	TotalNewReviews     int          `json:"total_new_reviews"`
	TotalUpdatedReviews int          `json:"total_updated_reviews"`
	Results             []SyncResult `json:"results"`
}

// NotificationPayload is handed to the external notifier. The pipeline does
// not know or care which channels deliver it.
type NotificationPayload struct {
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Severity  string                 `json:"severity"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
