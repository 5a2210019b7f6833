package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/bus"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/cache"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/notify"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/pricefeed"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/repository/cached"
	"github.com/coinpulse/coinpulse-backend/internal/adapter/repository/postgres"
	"github.com/coinpulse/coinpulse-backend/internal/config"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
	"github.com/coinpulse/coinpulse-backend/internal/usecase/dispatch"
	"github.com/coinpulse/coinpulse-backend/internal/usecase/evaluate"
	"github.com/coinpulse/coinpulse-backend/internal/usecase/ingest"
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

	// 1. Durable storage
	db, err := postgres.NewDB(cfg.Database.ConnString())
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// 2. Cache layer
	backend, err := cache.NewRedisBackend(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backend.Close()
	store := cache.NewStore(backend, cfg.Cache.Version, cfg.Cache.MaxBytes)

	// 3. Repositories, cached where reads are hot
	cryptoRepo := postgres.NewCryptocurrencyRepository(db)
	alertRepo := cached.NewAlertRepository(postgres.NewAlertRepository(db), store, cfg.Cache.TTL, log)
	preferenceRepo := cached.NewPreferenceRepository(postgres.NewPreferenceRepository(db), store, cfg.Cache.TTL, log)
	notificationRepo := postgres.NewNotificationRepository(db)

	// 4. Event bus and services
	eventBus := bus.New(cfg.Bus.Partitions, cfg.Bus.BufferSize, log)

	feed := pricefeed.NewCoinGeckoClient(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Feed.FetchTimeout)
	ingestor := ingest.NewIngestorService(feed, cryptoRepo, eventBus, cfg.Feed.Coins, log)
	evaluator := evaluate.NewEvaluatorService(alertRepo, eventBus, log)

	emailSender := notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	telegramSender := notify.NewTelegramSender("", cfg.Telegram.BotToken, cfg.Telegram.Timeout)
	dispatcher := dispatch.NewDispatcherService(preferenceRepo, notificationRepo, emailSender, telegramSender,
		dispatch.Config{
			EmailEnabled:    cfg.Channels.EmailEnabled,
			TelegramEnabled: cfg.Channels.TelegramEnabled,
		}, log)

	eventBus.Subscribe(domain.TopicPriceUpdates, evaluator.ConsumePriceUpdate)
	eventBus.Subscribe(domain.TopicAlertTriggered, dispatcher.ConsumeAlertTriggered)
	eventBus.Start(ctx)

	log.Info("price tracker started",
		slog.Int("coins", len(cfg.Feed.Coins)),
		slog.Duration("interval", cfg.Feed.FetchInterval),
		slog.String("cache_version", cfg.Cache.Version))

	if err := ingestor.Run(ctx, cfg.Feed.FetchInterval); err != nil && ctx.Err() == nil {
		log.Error("ingestion loop stopped", slog.String("error", err.Error()))
	}

	eventBus.Close()
	log.Info("price tracker stopped")
}
