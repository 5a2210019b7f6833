package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

type notificationRow struct {
	ID             uuid.UUID    `db:"id"`
	Channel        string       `db:"channel"`
	Recipient      string       `db:"recipient"`
	Message        string       `db:"message"`
	IdempotencyKey string       `db:"idempotency_key"`
	Status         string       `db:"status"`
	CreatedAt      time.Time    `db:"created_at"`
	SentAt         sql.NullTime `db:"sent_at"`
}

func (r notificationRow) toDomain() *domain.Notification {
	n := &domain.Notification{
		ID:             r.ID,
		Channel:        domain.NotificationChannel(r.Channel),
		Recipient:      r.Recipient,
		Message:        r.Message,
		IdempotencyKey: r.IdempotencyKey,
		Status:         domain.NotificationStatus(r.Status),
		CreatedAt:      r.CreatedAt,
	}
	if r.SentAt.Valid {
		sentAt := r.SentAt.Time
		n.SentAt = &sentAt
	}
	return n
}

func toNotificationRow(n *domain.Notification) notificationRow {
	row := notificationRow{
		ID:             n.ID,
		Channel:        string(n.Channel),
		Recipient:      n.Recipient,
		Message:        n.Message,
		IdempotencyKey: n.IdempotencyKey,
		Status:         string(n.Status),
		CreatedAt:      n.CreatedAt,
	}
	if n.SentAt != nil {
		row.SentAt = sql.NullTime{Time: *n.SentAt, Valid: true}
	}
	return row
}

// notificationRepository implements domain.NotificationRepository
type notificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

// Save inserts a new notification record. The unique constraint on
// idempotency_key guarantees a single record per (event, channel).
func (r *notificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, channel, recipient, message, idempotency_key, status, created_at, sent_at)
		VALUES (:id, :channel, :recipient, :message, :idempotency_key, :status, :created_at, :sent_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, toNotificationRow(notification)); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// Update persists a delivery outcome for an existing notification
func (r *notificationRepository) Update(ctx context.Context, notification *domain.Notification) error {
	query := `
		UPDATE notifications
		SET status = :status, sent_at = :sent_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, toNotificationRow(notification))
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification %s: %w", notification.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByIdempotencyKey retrieves a notification by its idempotency key
func (r *notificationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Notification, error) {
	query := `
		SELECT id, channel, recipient, message, idempotency_key, status, created_at, sent_at
		FROM notifications
		WHERE idempotency_key = $1
	`

	var row notificationRow
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification by idempotency key: %w", err)
	}

	return row.toDomain(), nil
}
