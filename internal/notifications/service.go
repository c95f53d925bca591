package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sagehouse/reviews-bot/internal/config"
	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers notification payloads via the configured channels
// (webhook POST and/or SMTP email). A channel failure is reported but does
// not prevent the other channel from being attempted.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Notify sends the payload to every configured channel.
func (s *Service) Notify(payload *models.NotificationPayload) error {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}

	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendWebhook(payload); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Infof("Sent webhook notification: %s", payload.Title)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(payload); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Infof("Sent email notification: %s", payload.Title)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendWebhook(payload *models.NotificationPayload) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.config.WebhookURL)

	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}

	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) sendEmail(payload *models.NotificationPayload) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Reviews] %s", payload.Title))
	m.SetBody("text/plain", s.formatEmailBody(payload))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) formatEmailBody(payload *models.NotificationPayload) string {
	lines := []string{
		payload.Message,
		"",
		fmt.Sprintf("Severity: %s", payload.Severity),
		fmt.Sprintf("Time: %s", payload.Timestamp.Format("2006-01-02 15:04:05 UTC")),
	}

	if review, ok := payload.Data["review"].(map[string]interface{}); ok {
		lines = append(lines, "")
		if platform, ok := review["platform_name"].(string); ok && platform != "" {
			lines = append(lines, fmt.Sprintf("Platform: %s", platform))
		}
		if reviewer, ok := review["reviewer_name"].(string); ok && reviewer != "" {
			lines = append(lines, fmt.Sprintf("Reviewer: %s", reviewer))
		}
		if rating, ok := review["rating"].(float64); ok {
			lines = append(lines, fmt.Sprintf("Rating: %.1f/5", rating))
		}
		if text, ok := review["review_text"].(string); ok && text != "" {
			lines = append(lines, "", "Review:", truncate(text, 500))
		}
	}

	return strings.Join(lines, "\n")
}

// truncate shortens text to at most max runes. Cutting on a rune boundary
// keeps multi-byte review text valid UTF-8.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
