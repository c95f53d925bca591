package store

import (
	"time"

	"github.com/sagehouse/reviews-bot/internal/models"
)

// Store defines the persistence contract for the sync pipeline. The
// presentation layer consumes the same read methods, read-only.
type Store interface {
	// Platforms
	ListActivePlatforms() ([]models.Platform, error)
	ListActivePlatformsByIDs(ids []uint) ([]models.Platform, error)
	GetPlatform(id uint) (*models.Platform, error)
	CreatePlatform(platform *models.Platform) error
	UpdatePlatformLastSync(id uint, syncedAt time.Time) error

	// Reviews
	GetReviewByExternalID(platformID uint, externalID string) (*models.Review, error)
	CreateReview(review *models.Review) error
	UpdateReview(review *models.Review) error
	ListReviewsByPlatform(platformID uint) ([]models.Review, error)
	ListReviewsCreatedSince(since time.Time) ([]models.Review, error)

	// Snapshots (append-only)
	CreateSnapshot(snapshot *models.ReviewSnapshot) error
	LatestSnapshots(platformID uint, limit int) ([]models.ReviewSnapshot, error)

	// Alerts
	FindActiveAlert(reviewID *uint, alertType models.AlertType) (*models.Alert, error)
	CreateAlert(alert *models.Alert) error
	GetAlert(id uint) (*models.Alert, error)
	UpdateAlert(alert *models.Alert) error
	ListAlerts(status models.AlertStatus, alertType models.AlertType, limit, offset int) ([]models.Alert, error)
	CountAlertsByStatus() (map[models.AlertStatus]int64, error)
	BulkUpdateAlertStatus(ids []uint, status models.AlertStatus) (int64, error)

	Close() error
}
