package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

type preferenceRow struct {
	ID              uuid.UUID     `db:"id"`
	Email           string        `db:"email"`
	EmailEnabled    bool          `db:"email_enabled"`
	TelegramID      sql.NullInt64 `db:"telegram_id"`
	TelegramEnabled bool          `db:"telegram_enabled"`
}

func (r preferenceRow) toDomain() *domain.UserPreference {
	pref := &domain.UserPreference{
		ID:              r.ID,
		Email:           r.Email,
		EmailEnabled:    r.EmailEnabled,
		TelegramEnabled: r.TelegramEnabled,
	}
	if r.TelegramID.Valid {
		pref.TelegramID = r.TelegramID.Int64
	}
	return pref
}

func toPreferenceRow(pref *domain.UserPreference) preferenceRow {
	row := preferenceRow{
		ID:              pref.ID,
		Email:           pref.Email,
		EmailEnabled:    pref.EmailEnabled,
		TelegramEnabled: pref.TelegramEnabled,
	}
	if pref.TelegramID != 0 {
		row.TelegramID = sql.NullInt64{Int64: pref.TelegramID, Valid: true}
	}
	return row
}

// preferenceRepository implements domain.PreferenceRepository
type preferenceRepository struct {
	db *DB
}

// NewPreferenceRepository creates a new user preference repository
func NewPreferenceRepository(db *DB) domain.PreferenceRepository {
	return &preferenceRepository{db: db}
}

// GetByID retrieves a user's notification preferences by email
func (r *preferenceRepository) GetByID(ctx context.Context, email string) (*domain.UserPreference, error) {
	query := `
		SELECT id, email, email_enabled, telegram_id, telegram_enabled
		FROM user_preferences
		WHERE email = $1
	`

	var row preferenceRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preferences for %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get preferences by email: %w", err)
	}

	return row.toDomain(), nil
}

// Save inserts or replaces a user's notification preferences
func (r *preferenceRepository) Save(ctx context.Context, pref *domain.UserPreference) error {
	if err := pref.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO user_preferences (id, email, email_enabled, telegram_id, telegram_enabled)
		VALUES (:id, :email, :email_enabled, :telegram_id, :telegram_enabled)
		ON CONFLICT (email) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			telegram_id = EXCLUDED.telegram_id,
			telegram_enabled = EXCLUDED.telegram_enabled
	`

	if _, err := r.db.NamedExecContext(ctx, query, toPreferenceRow(pref)); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Delete removes a user's notification preferences
func (r *preferenceRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	return nil
}
