package cached

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/cache"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// View prefixes of the portfolio's derived cached views. Each view is
// versioned independently through the store's configured cache version.
const (
	portfolioAssetsPrefix = "portfolio-assets"
	portfolioTotalPrefix  = "portfolio-total-value"
)

// PortfolioRepository decorates a portfolio repository with multi-view
// cache-aside reads: the assets+prices view and the total-value view are
// cached under separate prefixes, and any write invalidates both.
type PortfolioRepository struct {
	*Repository[string, domain.Portfolio]

	inner domain.PortfolioRepository
	store *cache.Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewPortfolioRepository creates the cached portfolio repository
func NewPortfolioRepository(inner domain.PortfolioRepository, store *cache.Store, ttl time.Duration, log *slog.Logger) *PortfolioRepository {
	if log == nil {
		log = slog.Default()
	}
	generic := New[string, domain.Portfolio](inner, store, Binding[string, domain.Portfolio]{
		Prefix:   portfolioAssetsPrefix,
		KeyID:    func(wallet string) string { return wallet },
		Identity: func(p *domain.Portfolio) string { return p.WalletAddress },
		Views: func(wallet string, _ *domain.Portfolio) []cache.Key {
			return []cache.Key{store.Key(portfolioTotalPrefix, wallet)}
		},
		TTL: ttl,
	}, log)

	return &PortfolioRepository{
		Repository: generic,
		inner:      inner,
		store:      store,
		ttl:        ttl,
		log:        log,
	}
}

// GetTotalValue serves the portfolio and its total value from the two view
// caches; if either view is absent both are recomputed from the wrapped
// repository and repopulated with the same TTL.
func (r *PortfolioRepository) GetTotalValue(ctx context.Context, walletAddress string) (*domain.Portfolio, decimal.Decimal, error) {
	assetsKey := r.store.Key(portfolioAssetsPrefix, walletAddress)
	totalKey := r.store.Key(portfolioTotalPrefix, walletAddress)

	var portfolio domain.Portfolio
	var total decimal.Decimal
	if err := r.store.Get(ctx, assetsKey, &portfolio); err == nil {
		if err := r.store.Get(ctx, totalKey, &total); err == nil {
			return &portfolio, total, nil
		} else if errors.Is(err, cache.ErrCorrupted) {
			r.log.Error("cache entry corrupted, rebuilding from repository",
				"key", totalKey.String(), "error", err)
			if delErr := r.store.Delete(ctx, totalKey); delErr != nil {
				r.log.Error("failed to drop corrupted cache entry", "key", totalKey.String(), "error", delErr)
			}
		}
	} else if errors.Is(err, cache.ErrCorrupted) {
		r.log.Error("cache entry corrupted, rebuilding from repository",
			"key", assetsKey.String(), "error", err)
		if delErr := r.store.Delete(ctx, assetsKey); delErr != nil {
			r.log.Error("failed to drop corrupted cache entry", "key", assetsKey.String(), "error", delErr)
		}
	}

	fresh, freshTotal, err := r.inner.GetTotalValue(ctx, walletAddress)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err := r.store.Set(ctx, assetsKey, fresh, r.ttl); err != nil {
		r.log.Warn("failed to populate portfolio cache", "key", assetsKey.String(), "error", err)
	}
	if err := r.store.Set(ctx, totalKey, freshTotal, r.ttl); err != nil {
		r.log.Warn("failed to populate total value cache", "key", totalKey.String(), "error", err)
	}
	return fresh, freshTotal, nil
}

// ListWalletsByAsset delegates directly to the wrapped repository
func (r *PortfolioRepository) ListWalletsByAsset(ctx context.Context, ticker string) ([]string, error) {
	return r.inner.ListWalletsByAsset(ctx, ticker)
}

// InvalidateWallet drops every cached view of the wallet's portfolio. Used
// when a price update changes the valuation without any portfolio write.
func (r *PortfolioRepository) InvalidateWallet(ctx context.Context, walletAddress string) error {
	return r.store.Delete(ctx,
		r.store.Key(portfolioAssetsPrefix, walletAddress),
		r.store.Key(portfolioTotalPrefix, walletAddress),
	)
}
