package notifications

import "github.com/sagehouse/reviews-bot/internal/models"

// Notifier is the external notification collaborator. The pipeline only
// decides to notify and builds the payload; delivery channels are this
// side's concern.
type Notifier interface {
	Notify(payload *models.NotificationPayload) error
}
