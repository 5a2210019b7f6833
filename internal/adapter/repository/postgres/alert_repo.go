package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// alertRow is the database shape of a domain.Alert
type alertRow struct {
	ID         uuid.UUID       `db:"id"`
	Email      string          `db:"email"`
	Symbol     string          `db:"symbol"`
	Threshold  decimal.Decimal `db:"threshold"`
	Condition  string          `db:"condition"`
	Repeat     bool            `db:"repeat"`
	TelegramID sql.NullInt64   `db:"telegram_id"`
	Active     bool            `db:"active"`
	CreatedAt  time.Time       `db:"created_at"`
}

func (r alertRow) toDomain() *domain.Alert {
	return &domain.Alert{
		ID:         r.ID,
		Email:      r.Email,
		Symbol:     r.Symbol,
		Threshold:  r.Threshold,
		Condition:  domain.AlertCondition(r.Condition),
		Repeat:     r.Repeat,
		TelegramID: r.TelegramID.Int64,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
	}
}

func toAlertRow(a *domain.Alert) alertRow {
	return alertRow{
		ID:         a.ID,
		Email:      a.Email,
		Symbol:     a.Symbol,
		Threshold:  a.Threshold,
		Condition:  string(a.Condition),
		Repeat:     a.Repeat,
		TelegramID: sql.NullInt64{Int64: a.TelegramID, Valid: a.TelegramID != 0},
		Active:     a.Active,
		CreatedAt:  a.CreatedAt,
	}
}

// alertRepository implements domain.AlertRepository
type alertRepository struct {
	db *DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *DB) domain.AlertRepository {
	return &alertRepository{db: db}
}

// GetByID retrieves an alert by its ID
func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	query := `
		SELECT id, email, symbol, threshold, condition, repeat, telegram_id, active, created_at
		FROM alerts
		WHERE id = $1
	`

	var row alertRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert by ID: %w", err)
	}

	return row.toDomain(), nil
}

// Save inserts or replaces an alert
func (r *alertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (id, email, symbol, threshold, condition, repeat, telegram_id, active, created_at)
		VALUES (:id, :email, :symbol, :threshold, :condition, :repeat, :telegram_id, :active, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			symbol = EXCLUDED.symbol,
			threshold = EXCLUDED.threshold,
			condition = EXCLUDED.condition,
			repeat = EXCLUDED.repeat,
			telegram_id = EXCLUDED.telegram_id,
			active = EXCLUDED.active
	`

	if _, err := r.db.NamedExecContext(ctx, query, toAlertRow(alert)); err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// Delete removes an alert by its ID
func (r *alertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

// ListActiveBySymbol retrieves all active alerts for a cryptocurrency symbol
func (r *alertRepository) ListActiveBySymbol(ctx context.Context, symbol string) ([]*domain.Alert, error) {
	query := `
		SELECT id, email, symbol, threshold, condition, repeat, telegram_id, active, created_at
		FROM alerts
		WHERE symbol = $1 AND active = TRUE
		ORDER BY created_at
	`

	var rows []alertRow
	if err := r.db.SelectContext(ctx, &rows, query, symbol); err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}

	alerts := make([]*domain.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, row.toDomain())
	}
	return alerts, nil
}

// ListByEmail retrieves all alerts owned by the given email
func (r *alertRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Alert, error) {
	query := `
		SELECT id, email, symbol, threshold, condition, repeat, telegram_id, active, created_at
		FROM alerts
		WHERE email = $1
		ORDER BY created_at
	`

	var rows []alertRow
	if err := r.db.SelectContext(ctx, &rows, query, email); err != nil {
		return nil, fmt.Errorf("failed to list alerts by email: %w", err)
	}

	alerts := make([]*domain.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, row.toDomain())
	}
	return alerts, nil
}
