// Package notify persists in-app notifications and fans them out to an
// optional external webhook. Rows are inserted inside the caller's database
// transaction; webhook delivery runs after commit, isolated behind a
// circuit breaker and a bulkhead so a slow or dead endpoint can never
// stall or fail a request.
package notify

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bsrmarket/marketplace/internal/metrics"
	"github.com/bsrmarket/marketplace/internal/patterns"
	"github.com/bsrmarket/marketplace/internal/storage"
)

// Notifier writes notification rows and delivers them to the configured
// webhook. An empty webhook URL disables delivery entirely.
type Notifier struct {
	webhookURL string
	client     *resty.Client
	breaker    *patterns.CircuitBreakerWrapper
	bulkhead   *patterns.Bulkhead
}

func New(webhookURL string) *Notifier {
	client := resty.New().
		SetTimeout(patterns.DefaultTimeout).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		webhookURL: webhookURL,
		client:     client,
		breaker:    patterns.NewCircuitBreaker("notification-webhook"),
		bulkhead:   patterns.NewBulkhead(5, "notification-webhook"),
	}
}

// Insert creates one notification row using tx so it commits or rolls back
// with the operation that produced it. The returned row carries the
// generated ID for post-commit delivery.
func (n *Notifier) Insert(tx *gorm.DB, userID uint, typ, title, body, priority string) (storage.Notification, error) {
	row := storage.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Priority:  priority,
		SendEmail: true,
	}
	if err := tx.Create(&row).Error; err != nil {
		return storage.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues(typ).Inc()
	return row, nil
}

type webhookPayload struct {
	NotificationID uint   `json:"notification_id"`
	UserID         uint   `json:"user_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Priority       string `json:"priority"`
}

// Publish fans the committed rows out to the webhook. Each delivery runs
// in its own goroutine; failures are logged and counted, never surfaced.
func (n *Notifier) Publish(rows []storage.Notification) {
	if n.webhookURL == "" || len(rows) == 0 {
		return
	}
	for _, row := range rows {
		go n.deliver(row)
	}
}

func (n *Notifier) deliver(row storage.Notification) {
	err := n.bulkhead.Execute(func() error {
		_, execErr := n.breaker.Execute(func() (interface{}, error) {
			resp, err := n.client.R().
				SetBody(webhookPayload{
					NotificationID: row.ID,
					UserID:         row.UserID,
					Type:           row.Type,
					Title:          row.Title,
					Message:        row.Body,
					Priority:       row.Priority,
				}).
				Post(n.webhookURL)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode() >= 400 {
				return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode())
			}
			return nil, nil
		})
		return patterns.FormatError("notification-webhook", execErr)
	})

	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
		log.WithFields(log.Fields{
			"notification_id": row.ID,
			"user_id":         row.UserID,
			"error":           err.Error(),
		}).Warn("Notification webhook delivery failed")
		return
	}

	metrics.WebhookDeliveries.WithLabelValues("success").Inc()
	log.WithFields(log.Fields{
		"notification_id": row.ID,
		"user_id":         row.UserID,
	}).Debug("Notification webhook delivered")
}
