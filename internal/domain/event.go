package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event bus topics shared by the services.
const (
	TopicPriceUpdates   = "price-updates"
	TopicAlertTriggered = "alert-triggered"
)

// PriceUpdated is published by the ingestor after a price has been fetched
// and persisted. The price travels as a quoted decimal string and the
// timestamp as RFC 3339, so no consumer ever sees a binary float.
type PriceUpdated struct {
	ID        uuid.UUID       `json:"id"`
	Symbol    string          `json:"cryptocurrency"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewPriceUpdated builds a PriceUpdated event with a fresh event ID
func NewPriceUpdated(symbol, name string, price decimal.Decimal, ts time.Time) PriceUpdated {
	return PriceUpdated{
		ID:        uuid.New(),
		Symbol:    symbol,
		Name:      name,
		Price:     price,
		Timestamp: ts.UTC(),
	}
}

// AlertTriggered is published by the evaluator exactly once per qualifying
// not-satisfied to satisfied transition of an alert.
type AlertTriggered struct {
	ID             uuid.UUID       `json:"id"`
	AlertID        uuid.UUID       `json:"alert_id"`
	Email          string          `json:"email"`
	TelegramID     int64           `json:"telegram_id,omitempty"`
	Symbol         string          `json:"cryptocurrency"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	ThresholdPrice decimal.Decimal `json:"threshold_price"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewAlertTriggered builds an AlertTriggered event for the given alert and price
func NewAlertTriggered(alert *Alert, currentPrice decimal.Decimal) AlertTriggered {
	return AlertTriggered{
		ID:             uuid.New(),
		AlertID:        alert.ID,
		Email:          alert.Email,
		TelegramID:     alert.TelegramID,
		Symbol:         alert.Symbol,
		CurrentPrice:   currentPrice,
		ThresholdPrice: alert.Threshold,
		CreatedAt:      time.Now().UTC(),
	}
}

// EventPublisher publishes an event payload to a topic. The key selects the
// partition, so events sharing a key are consumed in publish order.
// Publishing is at-least-once; consumers must tolerate redelivery.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}
