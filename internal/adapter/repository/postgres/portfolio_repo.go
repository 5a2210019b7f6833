package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

type portfolioRow struct {
	WalletAddress string    `db:"wallet_address"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// assetRow joins a held position with the asset's latest stored price,
// so a loaded portfolio always values positions at the current market.
// previous_price is the observation before the latest one, zero when
// the asset has no price history yet.
type assetRow struct {
	Ticker        string          `db:"ticker"`
	Amount        decimal.Decimal `db:"amount"`
	CurrentPrice  decimal.Decimal `db:"current_price"`
	PreviousPrice decimal.Decimal `db:"previous_price"`
}

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

// GetByID retrieves a portfolio with its assets by wallet address
func (r *portfolioRepository) GetByID(ctx context.Context, walletAddress string) (*domain.Portfolio, error) {
	var row portfolioRow
	err := r.db.GetContext(ctx, &row,
		`SELECT wallet_address, updated_at FROM portfolios WHERE wallet_address = $1`, walletAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s: %w", walletAddress, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	assets, err := r.loadAssets(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	return &domain.Portfolio{
		WalletAddress: row.WalletAddress,
		Assets:        assets,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (r *portfolioRepository) loadAssets(ctx context.Context, walletAddress string) ([]domain.Asset, error) {
	query := `
		SELECT pa.ticker, pa.amount,
		       COALESCE(c.last_price, 0) AS current_price,
		       COALESCE(prev.price, 0) AS previous_price
		FROM portfolio_assets pa
		LEFT JOIN cryptocurrencies c ON c.symbol = pa.ticker
		LEFT JOIN LATERAL (
			SELECT price FROM price_points
			WHERE symbol = pa.ticker
			ORDER BY observed_at DESC
			OFFSET 1 LIMIT 1
		) prev ON true
		WHERE pa.wallet_address = $1
		ORDER BY pa.ticker
	`

	var rows []assetRow
	if err := r.db.SelectContext(ctx, &rows, query, walletAddress); err != nil {
		return nil, fmt.Errorf("failed to load portfolio assets: %w", err)
	}

	assets := make([]domain.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, domain.Asset{
			Ticker:        row.Ticker,
			Amount:        row.Amount,
			CurrentPrice:  row.CurrentPrice,
			PreviousPrice: row.PreviousPrice,
		})
	}
	return assets, nil
}

// Save inserts or replaces a portfolio and its asset positions
func (r *portfolioRepository) Save(ctx context.Context, portfolio *domain.Portfolio) error {
	if err := portfolio.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO portfolios (wallet_address, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert, portfolio.WalletAddress, portfolio.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM portfolio_assets WHERE wallet_address = $1`, portfolio.WalletAddress); err != nil {
		return fmt.Errorf("failed to clear portfolio assets: %w", err)
	}

	for _, asset := range portfolio.Assets {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO portfolio_assets (wallet_address, ticker, amount) VALUES ($1, $2, $3)`,
			portfolio.WalletAddress, asset.Ticker, asset.Amount)
		if err != nil {
			return fmt.Errorf("failed to save portfolio asset %s: %w", asset.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio save: %w", err)
	}
	return nil
}

// Delete removes a portfolio and its asset positions
func (r *portfolioRepository) Delete(ctx context.Context, walletAddress string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM portfolio_assets WHERE wallet_address = $1`, walletAddress); err != nil {
		return fmt.Errorf("failed to delete portfolio assets: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM portfolios WHERE wallet_address = $1`, walletAddress); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio delete: %w", err)
	}
	return nil
}

// GetTotalValue retrieves the portfolio and its total value in one read
func (r *portfolioRepository) GetTotalValue(ctx context.Context, walletAddress string) (*domain.Portfolio, decimal.Decimal, error) {
	portfolio, err := r.GetByID(ctx, walletAddress)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return portfolio, portfolio.TotalValue(), nil
}

// ListWalletsByAsset retrieves the wallet addresses of every portfolio
// holding the given ticker
func (r *portfolioRepository) ListWalletsByAsset(ctx context.Context, ticker string) ([]string, error) {
	var wallets []string
	err := r.db.SelectContext(ctx, &wallets,
		`SELECT wallet_address FROM portfolio_assets WHERE ticker = $1 ORDER BY wallet_address`, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets by asset: %w", err)
	}
	return wallets, nil
}
