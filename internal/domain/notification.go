package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationChannel identifies a delivery channel
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "EMAIL"
	ChannelTelegram NotificationChannel = "TELEGRAM"
)

// NotificationStatus tracks the delivery lifecycle of a notification
type NotificationStatus string

const (
	StatusCreated NotificationStatus = "CREATED"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

// Notification is a single delivery attempt reserved for one channel of one
// alert-triggered event. The idempotency key makes redelivered events
// observable as duplicates instead of producing a second send.
type Notification struct {
	ID             uuid.UUID
	Channel        NotificationChannel
	Recipient      string
	Message        string
	IdempotencyKey string
	Status         NotificationStatus
	CreatedAt      time.Time
	SentAt         *time.Time
}

// IdempotencyKey builds the per-(event, channel) reservation key
func IdempotencyKey(eventID uuid.UUID, channel NotificationChannel) string {
	return fmt.Sprintf("alert-triggered:%s:%s", eventID, channel)
}

// NewNotification reserves a CREATED notification for the given event and channel
func NewNotification(eventID uuid.UUID, channel NotificationChannel, recipient, message string) *Notification {
	return &Notification{
		ID:             uuid.New(),
		Channel:        channel,
		Recipient:      recipient,
		Message:        message,
		IdempotencyKey: IdempotencyKey(eventID, channel),
		Status:         StatusCreated,
		CreatedAt:      time.Now().UTC(),
	}
}

// MarkSent transitions the notification to SENT and records the send time
func (n *Notification) MarkSent() {
	now := time.Now().UTC()
	n.Status = StatusSent
	n.SentAt = &now
}

// MarkFailed transitions the notification to FAILED
func (n *Notification) MarkFailed() {
	n.Status = StatusFailed
}
