// Package valuation serves portfolio values and analytics, and keeps the
// cached valuations consistent with incoming price updates.
package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// portfolioReader is the cached portfolio surface the service depends on
type portfolioReader interface {
	domain.PortfolioRepository
	InvalidateWallet(ctx context.Context, walletAddress string) error
}

// ValuationService answers portfolio value queries and reacts to price
// updates by invalidating the affected wallets' cached views.
type ValuationService struct {
	Portfolios portfolioReader
	Log        *slog.Logger
}

// NewValuationService creates a new ValuationService instance
func NewValuationService(portfolios portfolioReader, log *slog.Logger) *ValuationService {
	return &ValuationService{Portfolios: portfolios, Log: log}
}

// GetPortfolio returns a wallet's holdings with their latest prices
func (s *ValuationService) GetPortfolio(ctx context.Context, walletAddress string) (*domain.Portfolio, error) {
	return s.Portfolios.GetByID(ctx, walletAddress)
}

// GetTotalValue returns the portfolio and its market value
func (s *ValuationService) GetTotalValue(ctx context.Context, walletAddress string) (*domain.Portfolio, decimal.Decimal, error) {
	return s.Portfolios.GetTotalValue(ctx, walletAddress)
}

// GetAnalytics returns the per-asset breakdown of a wallet: position
// values and each asset's share of the portfolio.
func (s *ValuationService) GetAnalytics(ctx context.Context, walletAddress string) ([]domain.AssetAnalytics, error) {
	portfolio, err := s.Portfolios.GetByID(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	return portfolio.Analytics(), nil
}

// SavePortfolio stores a wallet's holdings. Cache invalidation of both
// valuation views rides on the repository's write path.
func (s *ValuationService) SavePortfolio(ctx context.Context, portfolio *domain.Portfolio) error {
	return s.Portfolios.Save(ctx, portfolio)
}

// ConsumePriceUpdate is the bus handler for the price-updates topic. A new
// price silently changes every holding portfolio's value, so their cached
// views are dropped and rebuilt on the next read.
func (s *ValuationService) ConsumePriceUpdate(ctx context.Context, payload []byte) error {
	var event domain.PriceUpdated
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode price update: %w", err)
	}

	wallets, err := s.Portfolios.ListWalletsByAsset(ctx, event.Symbol)
	if err != nil {
		return fmt.Errorf("failed to list wallets holding %s: %w", event.Symbol, err)
	}

	for _, wallet := range wallets {
		if err := s.Portfolios.InvalidateWallet(ctx, wallet); err != nil {
			s.Log.Error("failed to invalidate portfolio valuation",
				slog.String("wallet", wallet),
				slog.String("symbol", event.Symbol),
				slog.String("error", err.Error()))
		}
	}

	if len(wallets) > 0 {
		s.Log.Info("portfolio valuations invalidated",
			slog.String("symbol", event.Symbol),
			slog.Int("wallets", len(wallets)))
	}
	return nil
}
