package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/bus"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/cache"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/pricefeed"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/repository/cached"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/repository/postgres"
	"github.com/coinpulse/coinpulse-backend/internal/config"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
	"github.com/coinpulse/coinpulse-backend/internal/usecase/ingest"
	"github.com/coinpulse/coinpulse-backend/internal/usecase/valuation"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database.ConnString())
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	backend, err := cache.NewRedisBackend(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.Close()
	store := cache.NewStore(backend, cfg.Cache.Version, cfg.Cache.MaxBytes)

	cryptoRepo := postgres.NewCryptocurrencyRepository(db)
	portfolioRepo := cached.NewPortfolioRepository(postgres.NewPortfolioRepository(db), store, cfg.Cache.TTL, log)

	eventBus := bus.New(cfg.Bus.Partitions, cfg.Bus.BufferSize, log)

	feed := pricefeed.NewCoinGeckoClient(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Feed.FetchTimeout)
	ingestor := ingest.NewIngestorService(feed, cryptoRepo, eventBus, cfg.Feed.Coins, log)
	valuator := valuation.NewValuationService(portfolioRepo, log)

	// Every price update invalidates the cached valuations of the wallets
	// holding that asset; the next read rebuilds them at the new price.
	eventBus.Subscribe(domain.TopicPriceUpdates, valuator.ConsumePriceUpdate)
	eventBus.Start(ctx)

	log.Info("portfolio valuation worker started",
		slog.Int("coins", len(cfg.Feed.Coins)),
		slog.Duration("interval", cfg.Feed.FetchInterval))

	if err := ingestor.Run(ctx, cfg.Feed.FetchInterval); err != nil && ctx.Err() == nil {
		log.Error("ingestion loop stopped", slog.String("error", err.Error()))
	}

	eventBus.Close()
	log.Info("portfolio valuation worker stopped")
}
