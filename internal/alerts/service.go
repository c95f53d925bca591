package alerts

import (
	"fmt"
	"time"

	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/notifications"
	"github.com/sagehouse/reviews-bot/internal/store"
	"github.com/sirupsen/logrus"
)

// DefaultRatingDropThreshold is the minimum drop in average rating between
// consecutive snapshots that raises a rating_drop alert.
const DefaultRatingDropThreshold = 0.3

// Service raises, deduplicates, and manages the lifecycle of alerts.
type Service struct {
	store    store.Store
	notifier notifications.Notifier
}

// NewService creates an alert service. notifier may be nil, in which case
// alerts are persisted but not delivered anywhere.
func NewService(st store.Store, notifier notifications.Notifier) *Service {
	return &Service{store: st, notifier: notifier}
}

// Create persists an alert unless an equivalent one is already open. An alert
// is equivalent when it shares the same review and type and is still pending
// or acknowledged. Returns the stored alert and whether it was newly created.
func (s *Service) Create(alert *models.Alert, data map[string]interface{}) (*models.Alert, bool, error) {
	existing, err := s.store.FindActiveAlert(alert.ReviewID, alert.Type)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for duplicate alert: %w", err)
	}
	if existing != nil {
		logrus.Debugf("Suppressing duplicate %s alert", alert.Type)
		return existing, false, nil
	}

	alert.Status = models.AlertPending
	if alert.Severity == "" {
		alert.Severity = models.SeverityMedium
	}
	if err := s.store.CreateAlert(alert); err != nil {
		return nil, false, fmt.Errorf("failed to create alert: %w", err)
	}

	logrus.Infof("Alert raised: type=%s severity=%s title=%q", alert.Type, alert.Severity, alert.Title)

	s.deliver(alert, data)

	return alert, true, nil
}

// EvaluateReview raises alerts for a newly stored review. Called once per
// review, on first insert only, so re-syncs never re-alert.
func (s *Service) EvaluateReview(review *models.Review, platform *models.Platform) {
	data := map[string]interface{}{
		"review": map[string]interface{}{
			"platform_name": platform.Name,
			"reviewer_name": review.ReviewerName,
			"rating":        review.Rating,
			"review_text":   review.ReviewText,
			"sentiment":     review.SentimentScore,
		},
	}

	if review.Rating != nil && *review.Rating <= 2 {
		severity := models.SeverityMedium
		if *review.Rating <= 1 {
			severity = models.SeverityHigh
		}
		alert := &models.Alert{
			ReviewID: &review.ID,
			Type:     models.AlertNegativeReview,
			Severity: severity,
			Title:    fmt.Sprintf("Negative review on %s", platform.Name),
			Message: fmt.Sprintf("%s left a %.0f-star review: %s",
				reviewerOrAnon(review), *review.Rating, excerpt(review.ReviewText, 200)),
		}
		if _, _, err := s.Create(alert, data); err != nil {
			logrus.Errorf("Failed to raise negative review alert: %v", err)
		}
	}

	if review.SentimentScore < -0.5 {
		alert := &models.Alert{
			ReviewID: &review.ID,
			Type:     models.AlertResponseNeeded,
			Severity: models.SeverityMedium,
			Title:    fmt.Sprintf("Review needs response on %s", platform.Name),
			Message: fmt.Sprintf("Strongly negative sentiment (%.2f) from %s: %s",
				review.SentimentScore, reviewerOrAnon(review), excerpt(review.ReviewText, 200)),
		}
		if _, _, err := s.Create(alert, data); err != nil {
			logrus.Errorf("Failed to raise response needed alert: %v", err)
		}
	}
}

// CheckRatingDrop compares the two most recent snapshots for a platform and
// raises a rating_drop alert when the average fell by at least threshold.
// Pass 0 to use DefaultRatingDropThreshold. Returns whether a drop was
// detected.
func (s *Service) CheckRatingDrop(platformID uint, threshold float64) (bool, error) {
	if threshold <= 0 {
		threshold = DefaultRatingDropThreshold
	}

	snapshots, err := s.store.LatestSnapshots(platformID, 2)
	if err != nil {
		return false, fmt.Errorf("failed to load snapshots: %w", err)
	}
	if len(snapshots) < 2 {
		return false, nil
	}

	current, previous := snapshots[0], snapshots[1]
	if current.AverageRating == nil || previous.AverageRating == nil {
		return false, nil
	}

	drop := *previous.AverageRating - *current.AverageRating
	if drop < threshold {
		return false, nil
	}

	platform, err := s.store.GetPlatform(platformID)
	if err != nil {
		return false, fmt.Errorf("failed to load platform %d: %w", platformID, err)
	}

	severity := models.SeverityMedium
	if drop >= 0.5 {
		severity = models.SeverityHigh
	}

	alert := &models.Alert{
		Type:     models.AlertRatingDrop,
		Severity: severity,
		Title:    fmt.Sprintf("Rating drop on %s", platform.Name),
		Message: fmt.Sprintf("Average rating fell from %.2f to %.2f (drop of %.2f)",
			*previous.AverageRating, *current.AverageRating, drop),
	}
	data := map[string]interface{}{
		"platform_name":   platform.Name,
		"previous_rating": *previous.AverageRating,
		"current_rating":  *current.AverageRating,
		"drop":            drop,
	}
	if _, _, err := s.Create(alert, data); err != nil {
		return false, err
	}
	return true, nil
}

// CheckAllRatingDrops runs the rating drop check for every active platform.
func (s *Service) CheckAllRatingDrops(threshold float64) error {
	platforms, err := s.store.ListActivePlatforms()
	if err != nil {
		return fmt.Errorf("failed to list platforms: %w", err)
	}
	for _, platform := range platforms {
		if _, err := s.CheckRatingDrop(platform.ID, threshold); err != nil {
			logrus.Errorf("Rating drop check failed for %s: %v", platform.Name, err)
		}
	}
	return nil
}

// Acknowledge moves a pending alert to acknowledged.
func (s *Service) Acknowledge(id uint) (*models.Alert, error) {
	return s.transition(id, models.AlertAcknowledged)
}

// Resolve moves an alert to resolved.
func (s *Service) Resolve(id uint) (*models.Alert, error) {
	return s.transition(id, models.AlertResolved)
}

// Dismiss moves an alert to dismissed.
func (s *Service) Dismiss(id uint) (*models.Alert, error) {
	return s.transition(id, models.AlertDismissed)
}

func (s *Service) transition(id uint, target models.AlertStatus) (*models.Alert, error) {
	alert, err := s.store.GetAlert(id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fmt.Errorf("alert %d not found", id)
	}

	if !validTransition(alert.Status, target) {
		return nil, fmt.Errorf("cannot move alert %d from %s to %s", id, alert.Status, target)
	}

	now := time.Now().UTC()
	alert.Status = target
	switch target {
	case models.AlertAcknowledged:
		alert.AcknowledgedAt = &now
	case models.AlertResolved, models.AlertDismissed:
		alert.ResolvedAt = &now
	}

	if err := s.store.UpdateAlert(alert); err != nil {
		return nil, fmt.Errorf("failed to update alert %d: %w", id, err)
	}
	return alert, nil
}

// BulkUpdateStatus applies one status transition to many alerts at once,
// returning the number actually updated.
func (s *Service) BulkUpdateStatus(ids []uint, target models.AlertStatus) (int64, error) {
	switch target {
	case models.AlertAcknowledged, models.AlertResolved, models.AlertDismissed:
	default:
		return 0, fmt.Errorf("invalid bulk target status %q", target)
	}
	return s.store.BulkUpdateAlertStatus(ids, target)
}

// List returns alerts filtered by status and type. Empty values match all.
func (s *Service) List(status models.AlertStatus, alertType models.AlertType, limit, offset int) ([]models.Alert, error) {
	return s.store.ListAlerts(status, alertType, limit, offset)
}

// Counts returns the number of alerts in each status.
func (s *Service) Counts() (map[models.AlertStatus]int64, error) {
	return s.store.CountAlertsByStatus()
}

func (s *Service) deliver(alert *models.Alert, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	payload := &models.NotificationPayload{
		Title:     alert.Title,
		Message:   alert.Message,
		Severity:  alert.Severity,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	// Delivery failure never blocks alert creation; the alert row is the
	// source of truth and delivery is best effort.
	if err := s.notifier.Notify(payload); err != nil {
		logrus.Errorf("Failed to deliver alert notification: %v", err)
	}
}

func validTransition(from, to models.AlertStatus) bool {
	switch from {
	case models.AlertPending:
		return to == models.AlertAcknowledged || to == models.AlertResolved || to == models.AlertDismissed
	case models.AlertAcknowledged:
		return to == models.AlertResolved || to == models.AlertDismissed
	default:
		return false
	}
}

func reviewerOrAnon(review *models.Review) string {
	if review.ReviewerName != "" {
		return review.ReviewerName
	}
	return "An anonymous reviewer"
}

// excerpt truncates on a rune boundary so multi-byte text never ends up as
// invalid UTF-8 in alert messages.
func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
