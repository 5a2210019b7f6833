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

// cryptocurrencyRow is the database shape of a domain.Cryptocurrency
type cryptocurrencyRow struct {
	ID          uuid.UUID       `db:"id"`
	Symbol      string          `db:"symbol"`
	Name        string          `db:"name"`
	CoinGeckoID string          `db:"coingecko_id"`
	LastPrice   decimal.Decimal `db:"last_price"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r cryptocurrencyRow) toDomain() *domain.Cryptocurrency {
	return &domain.Cryptocurrency{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Name:        r.Name,
		CoinGeckoID: r.CoinGeckoID,
		LastPrice:   r.LastPrice,
		UpdatedAt:   r.UpdatedAt,
	}
}

// cryptocurrencyRepository implements domain.CryptocurrencyRepository
type cryptocurrencyRepository struct {
	db *DB
}

// NewCryptocurrencyRepository creates a new cryptocurrency repository
func NewCryptocurrencyRepository(db *DB) domain.CryptocurrencyRepository {
	return &cryptocurrencyRepository{db: db}
}

// GetByID retrieves a cryptocurrency by its symbol
func (r *cryptocurrencyRepository) GetByID(ctx context.Context, symbol string) (*domain.Cryptocurrency, error) {
	query := `
		SELECT id, symbol, name, coingecko_id, last_price, updated_at
		FROM cryptocurrencies
		WHERE symbol = $1
	`

	var row cryptocurrencyRow
	if err := r.db.GetContext(ctx, &row, query, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cryptocurrency %s: %w", symbol, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cryptocurrency by symbol: %w", err)
	}

	return row.toDomain(), nil
}

// Save inserts or replaces a cryptocurrency
func (r *cryptocurrencyRepository) Save(ctx context.Context, crypto *domain.Cryptocurrency) error {
	if err := crypto.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO cryptocurrencies (id, symbol, name, coingecko_id, last_price, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			coingecko_id = EXCLUDED.coingecko_id,
			last_price = EXCLUDED.last_price,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		crypto.ID, crypto.Symbol, crypto.Name, crypto.CoinGeckoID, crypto.LastPrice, crypto.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save cryptocurrency: %w", err)
	}
	return nil
}

// Delete removes a cryptocurrency by its symbol
func (r *cryptocurrencyRepository) Delete(ctx context.Context, symbol string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cryptocurrencies WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("failed to delete cryptocurrency: %w", err)
	}
	return nil
}

// SavePrice appends a price observation and updates the asset's last price
func (r *cryptocurrencyRepository) SavePrice(ctx context.Context, point *domain.PricePoint) error {
	if err := point.Validate(); err != nil {
		return err
	}

	insert := `
		INSERT INTO price_points (symbol, price, observed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, insert, point.Symbol, point.Price, point.Timestamp); err != nil {
		return fmt.Errorf("failed to save price point: %w", err)
	}

	update := `
		UPDATE cryptocurrencies
		SET last_price = $2, updated_at = $3
		WHERE symbol = $1
	`
	if _, err := r.db.ExecContext(ctx, update, point.Symbol, point.Price, point.Timestamp); err != nil {
		return fmt.Errorf("failed to update last price: %w", err)
	}
	return nil
}
