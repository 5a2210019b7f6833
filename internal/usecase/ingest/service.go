// Package ingest periodically fetches market prices, persists them, and
// publishes price-updated events for the downstream services.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/pricefeed"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// maxConcurrentFetches bounds parallel price feed calls per cycle
const maxConcurrentFetches = 4

// PriceFetcher retrieves current quotes from the market data provider
type PriceFetcher interface {
	FetchQuote(ctx context.Context, coinID string) (*pricefeed.Quote, error)
}

// IngestorService drives the fetch-persist-publish price cycle
type IngestorService struct {
	Fetcher    PriceFetcher
	CryptoRepo domain.CryptocurrencyRepository
	Publisher  domain.EventPublisher
	CoinIDs    []string
	Log        *slog.Logger
}

// NewIngestorService creates a new IngestorService instance
func NewIngestorService(
	fetcher PriceFetcher,
	cryptoRepo domain.CryptocurrencyRepository,
	publisher domain.EventPublisher,
	coinIDs []string,
	log *slog.Logger,
) *IngestorService {
	return &IngestorService{
		Fetcher:    fetcher,
		CryptoRepo: cryptoRepo,
		Publisher:  publisher,
		CoinIDs:    coinIDs,
		Log:        log,
	}
}

// Run executes ingestion cycles at the given interval until ctx is
// cancelled. The first cycle runs immediately.
func (s *IngestorService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle fetches every configured asset once. A failing asset is logged
// and skipped so one bad upstream response never blocks the others.
func (s *IngestorService) RunCycle(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, coinID := range s.CoinIDs {
		coinID := coinID
		g.Go(func() error {
			if err := s.ingestOne(gctx, coinID); err != nil {
				s.Log.Error("price ingestion failed",
					slog.String("coin_id", coinID),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	g.Wait()
}

func (s *IngestorService) ingestOne(ctx context.Context, coinID string) error {
	quote, err := s.Fetcher.FetchQuote(ctx, coinID)
	if err != nil {
		return fmt.Errorf("fetch quote: %w", err)
	}

	crypto, err := s.upsertAsset(ctx, coinID, quote)
	if err != nil {
		return err
	}

	point := &domain.PricePoint{
		Symbol:    crypto.Symbol,
		Price:     quote.Price,
		Timestamp: quote.UpdatedAt.UTC(),
	}
	if err := s.CryptoRepo.SavePrice(ctx, point); err != nil {
		return fmt.Errorf("save price: %w", err)
	}

	event := domain.NewPriceUpdated(crypto.Symbol, crypto.Name, quote.Price, quote.UpdatedAt)
	if err := s.Publisher.Publish(ctx, domain.TopicPriceUpdates, crypto.Symbol, event); err != nil {
		return fmt.Errorf("publish price update: %w", err)
	}

	s.Log.Info("price ingested",
		slog.String("symbol", crypto.Symbol),
		slog.String("price", quote.Price.String()))
	return nil
}

// upsertAsset loads the tracked asset by symbol, registering it on first sight
func (s *IngestorService) upsertAsset(ctx context.Context, coinID string, quote *pricefeed.Quote) (*domain.Cryptocurrency, error) {
	symbol := strings.ToUpper(quote.Symbol)

	crypto, err := s.CryptoRepo.GetByID(ctx, symbol)
	if err == nil {
		return crypto, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load asset: %w", err)
	}

	crypto = &domain.Cryptocurrency{
		ID:          uuid.New(),
		Symbol:      symbol,
		Name:        quote.Name,
		CoinGeckoID: coinID,
		LastPrice:   quote.Price,
		UpdatedAt:   quote.UpdatedAt.UTC(),
	}
	if err := s.CryptoRepo.Save(ctx, crypto); err != nil {
		return nil, fmt.Errorf("register asset: %w", err)
	}

	s.Log.Info("new asset registered", slog.String("symbol", symbol))
	return crypto, nil
}
