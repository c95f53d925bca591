package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/sagehouse/reviews-bot/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements Store on top of a SQLite database via gorm.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) the SQLite database at path and migrates the
// schema. Use a "file:...?mode=memory" DSN for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&models.Platform{},
		&models.Review{},
		&models.ReviewSnapshot{},
		&models.Alert{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Platforms ---

func (s *SQLiteStore) ListActivePlatforms() ([]models.Platform, error) {
	var platforms []models.Platform
	err := s.db.Where("is_active = ?", true).Order("id").Find(&platforms).Error
	return platforms, err
}

func (s *SQLiteStore) ListActivePlatformsByIDs(ids []uint) ([]models.Platform, error) {
	var platforms []models.Platform
	err := s.db.Where("id IN ? AND is_active = ?", ids, true).Order("id").Find(&platforms).Error
	return platforms, err
}

func (s *SQLiteStore) GetPlatform(id uint) (*models.Platform, error) {
	var platform models.Platform
	if err := s.db.First(&platform, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &platform, nil
}

func (s *SQLiteStore) CreatePlatform(platform *models.Platform) error {
	return s.db.Create(platform).Error
}

func (s *SQLiteStore) UpdatePlatformLastSync(id uint, syncedAt time.Time) error {
	return s.db.Model(&models.Platform{}).Where("id = ?", id).
		Update("last_sync", syncedAt).Error
}

// --- Reviews ---

// GetReviewByExternalID returns nil without error when no review matches the
// (platform, external id) dedup key.
func (s *SQLiteStore) GetReviewByExternalID(platformID uint, externalID string) (*models.Review, error) {
	var review models.Review
	err := s.db.Where("platform_id = ? AND external_review_id = ?", platformID, externalID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (s *SQLiteStore) CreateReview(review *models.Review) error {
	return s.db.Create(review).Error
}

func (s *SQLiteStore) UpdateReview(review *models.Review) error {
	return s.db.Save(review).Error
}

func (s *SQLiteStore) ListReviewsByPlatform(platformID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Where("platform_id = ?", platformID).Find(&reviews).Error
	return reviews, err
}

func (s *SQLiteStore) ListReviewsCreatedSince(since time.Time) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Where("created_at >= ?", since).Find(&reviews).Error
	return reviews, err
}

// --- Snapshots ---

func (s *SQLiteStore) CreateSnapshot(snapshot *models.ReviewSnapshot) error {
	return s.db.Create(snapshot).Error
}

// LatestSnapshots returns up to limit snapshots for a platform, most recent
// first.
func (s *SQLiteStore) LatestSnapshots(platformID uint, limit int) ([]models.ReviewSnapshot, error) {
	var snapshots []models.ReviewSnapshot
	err := s.db.Where("platform_id = ?", platformID).
		Order("snapshot_date DESC").Limit(limit).Find(&snapshots).Error
	return snapshots, err
}

// --- Alerts ---

// FindActiveAlert looks for a pending or acknowledged alert with the same
// (review, type) pair. Returns nil without error when none exists.
func (s *SQLiteStore) FindActiveAlert(reviewID *uint, alertType models.AlertType) (*models.Alert, error) {
	var alert models.Alert
	query := s.db.Where("type = ? AND status IN ?", alertType,
		[]models.AlertStatus{models.AlertPending, models.AlertAcknowledged})
	if reviewID != nil {
		query = query.Where("review_id = ?", *reviewID)
	} else {
		query = query.Where("review_id IS NULL")
	}
	if err := query.First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (s *SQLiteStore) CreateAlert(alert *models.Alert) error {
	return s.db.Create(alert).Error
}

func (s *SQLiteStore) GetAlert(id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

func (s *SQLiteStore) UpdateAlert(alert *models.Alert) error {
	return s.db.Save(alert).Error
}

func (s *SQLiteStore) ListAlerts(status models.AlertStatus, alertType models.AlertType, limit, offset int) ([]models.Alert, error) {
	query := s.db.Model(&models.Alert{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if alertType != "" {
		query = query.Where("type = ?", alertType)
	}
	if limit <= 0 {
		limit = 50
	}

	var alerts []models.Alert
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&alerts).Error
	return alerts, err
}

func (s *SQLiteStore) CountAlertsByStatus() (map[models.AlertStatus]int64, error) {
	type row struct {
		Status models.AlertStatus
		Count  int64
	}
	var rows []row
	err := s.db.Model(&models.Alert{}).
		Select("status, count(id) as count").
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AlertStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *SQLiteStore) BulkUpdateAlertStatus(ids []uint, status models.AlertStatus) (int64, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{"status": status}

	switch status {
	case models.AlertAcknowledged:
		updates["acknowledged_at"] = now
	case models.AlertResolved, models.AlertDismissed:
		updates["resolved_at"] = now
	}

	result := s.db.Model(&models.Alert{}).Where("id IN ?", ids).Updates(updates)
	return result.RowsAffected, result.Error
}
