// Package dispatch consumes alert-triggered events and delivers
// notifications over the user's enabled channels.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// EmailSender delivers a message to an email address
type EmailSender interface {
	SendEmail(ctx context.Context, to, message string) error
}

// TelegramSender delivers a message to a Telegram chat
type TelegramSender interface {
	SendTelegram(ctx context.Context, chatID int64, message string) error
}

// Config toggles delivery channels process-wide. A disabled channel is
// skipped without reserving an idempotency key, so enabling it later
// lets redelivered events still go out.
type Config struct {
	EmailEnabled    bool
	TelegramEnabled bool
}

// DispatcherService turns alert-triggered events into at-most-one
// delivery per channel per event
type DispatcherService struct {
	PreferenceRepo   domain.PreferenceRepository
	NotificationRepo domain.NotificationRepository
	Email            EmailSender
	Telegram         TelegramSender
	Cfg              Config
	Log              *slog.Logger
}

// NewDispatcherService creates a new DispatcherService instance
func NewDispatcherService(
	preferenceRepo domain.PreferenceRepository,
	notificationRepo domain.NotificationRepository,
	email EmailSender,
	telegram TelegramSender,
	cfg Config,
	log *slog.Logger,
) *DispatcherService {
	return &DispatcherService{
		PreferenceRepo:   preferenceRepo,
		NotificationRepo: notificationRepo,
		Email:            email,
		Telegram:         telegram,
		Cfg:              cfg,
		Log:              log,
	}
}

// ConsumeAlertTriggered is the bus handler for the alert-triggered topic
func (s *DispatcherService) ConsumeAlertTriggered(ctx context.Context, payload []byte) error {
	var event domain.AlertTriggered
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode alert triggered event: %w", err)
	}
	return s.Dispatch(ctx, event)
}

// Dispatch resolves the user's channel preferences and delivers over each
// enabled channel. Channels are independent: a failure on one never blocks
// the other, and each has its own idempotency reservation.
func (s *DispatcherService) Dispatch(ctx context.Context, event domain.AlertTriggered) error {
	pref, err := s.resolvePreference(ctx, event)
	if err != nil {
		return err
	}
	if !pref.AnyChannelEnabled() {
		s.Log.Info("all channels disabled, skipping event",
			slog.String("event_id", event.ID.String()),
			slog.String("email", event.Email))
		return nil
	}

	message := formatMessage(event)

	if s.Cfg.EmailEnabled && pref.EmailEnabled {
		s.deliver(ctx, event, domain.ChannelEmail, pref.Email, message, func(n *domain.Notification) error {
			return s.Email.SendEmail(ctx, n.Recipient, n.Message)
		})
	}
	if s.Cfg.TelegramEnabled && pref.TelegramEnabled {
		recipient := fmt.Sprintf("%d", pref.TelegramID)
		s.deliver(ctx, event, domain.ChannelTelegram, recipient, message, func(n *domain.Notification) error {
			return s.Telegram.SendTelegram(ctx, pref.TelegramID, n.Message)
		})
	}
	return nil
}

// resolvePreference loads stored preferences, falling back to an
// email-only default when the user never configured any.
func (s *DispatcherService) resolvePreference(ctx context.Context, event domain.AlertTriggered) (*domain.UserPreference, error) {
	pref, err := s.PreferenceRepo.GetByID(ctx, event.Email)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", event.Email, err)
	}

	return &domain.UserPreference{
		Email:           event.Email,
		EmailEnabled:    true,
		TelegramID:      event.TelegramID,
		TelegramEnabled: event.TelegramID != 0,
	}, nil
}

// deliver reserves the per-channel idempotency key, sends, and records the
// outcome. A key that is already reserved means the event was redelivered
// and the channel is skipped.
func (s *DispatcherService) deliver(
	ctx context.Context,
	event domain.AlertTriggered,
	channel domain.NotificationChannel,
	recipient, message string,
	send func(*domain.Notification) error,
) {
	key := domain.IdempotencyKey(event.ID, channel)

	existing, err := s.NotificationRepo.GetByIdempotencyKey(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.Log.Error("idempotency check failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	if existing != nil {
		s.Log.Info("duplicate delivery suppressed",
			slog.String("key", key),
			slog.String("status", string(existing.Status)))
		return
	}

	notification := domain.NewNotification(event.ID, channel, recipient, message)
	if err := s.NotificationRepo.Save(ctx, notification); err != nil {
		// Losing the race on the unique key is the same as finding it reserved.
		s.Log.Error("failed to reserve notification",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	if err := send(notification); err != nil {
		s.Log.Error("notification delivery failed",
			slog.String("key", key),
			slog.String("channel", string(channel)),
			slog.String("error", err.Error()))
		notification.MarkFailed()
	} else {
		notification.MarkSent()
		s.Log.Info("notification delivered",
			slog.String("key", key),
			slog.String("channel", string(channel)))
	}

	if err := s.NotificationRepo.Update(ctx, notification); err != nil {
		s.Log.Error("failed to record delivery outcome",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func formatMessage(event domain.AlertTriggered) string {
	direction := "crossed above"
	if event.CurrentPrice.LessThan(event.ThresholdPrice) {
		direction = "dropped below"
	}
	return fmt.Sprintf("%s %s your threshold of %s USD: current price is %s USD",
		event.Symbol, direction, event.ThresholdPrice.String(), event.CurrentPrice.String())
}
