// Package evaluate consumes price updates and turns threshold crossings
// into alert-triggered events.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// lastObservation is the most recent price seen for a symbol, used to
// drop redelivered price updates.
type lastObservation struct {
	price     decimal.Decimal
	timestamp string
}

// EvaluatorService fires alerts on the edge: an event is published only
// when an alert flips from not satisfied to satisfied. A price that keeps
// an alert satisfied produces nothing until the alert re-arms.
type EvaluatorService struct {
	AlertRepo domain.AlertRepository
	Publisher domain.EventPublisher
	Log       *slog.Logger

	mu        sync.Mutex
	satisfied map[uuid.UUID]bool
	lastSeen  map[string]lastObservation
}

// NewEvaluatorService creates a new EvaluatorService instance
func NewEvaluatorService(alertRepo domain.AlertRepository, publisher domain.EventPublisher, log *slog.Logger) *EvaluatorService {
	return &EvaluatorService{
		AlertRepo: alertRepo,
		Publisher: publisher,
		Log:       log,
		satisfied: make(map[uuid.UUID]bool),
		lastSeen:  make(map[string]lastObservation),
	}
}

// ConsumePriceUpdate is the bus handler for the price-updates topic
func (s *EvaluatorService) ConsumePriceUpdate(ctx context.Context, payload []byte) error {
	var event domain.PriceUpdated
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode price update: %w", err)
	}
	return s.Evaluate(ctx, event)
}

// Evaluate runs every active alert for the event's symbol against the new
// price. Redelivered updates (same price and timestamp) are dropped before
// any alert state changes.
func (s *EvaluatorService) Evaluate(ctx context.Context, event domain.PriceUpdated) error {
	if s.isDuplicate(event) {
		s.Log.Debug("duplicate price update dropped",
			slog.String("symbol", event.Symbol),
			slog.String("price", event.Price.String()))
		return nil
	}

	alerts, err := s.AlertRepo.ListActiveBySymbol(ctx, event.Symbol)
	if err != nil {
		return fmt.Errorf("failed to list active alerts for %s: %w", event.Symbol, err)
	}

	failed := false
	for _, alert := range alerts {
		if err := s.evaluateAlert(ctx, alert, event); err != nil {
			// One broken alert must not starve the rest of the symbol's alerts.
			s.Log.Error("alert evaluation failed",
				slog.String("alert_id", alert.ID.String()),
				slog.String("error", err.Error()))
			failed = true
		}
	}

	// The observation is recorded only after every alert evaluated cleanly.
	// After a failure the same event may be redelivered, and it must be
	// re-evaluated rather than dropped as a duplicate.
	if !failed {
		s.recordObservation(event)
	}
	return nil
}

func observationOf(event domain.PriceUpdated) lastObservation {
	return lastObservation{
		price:     event.Price,
		timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999"),
	}
}

// isDuplicate reports whether this exact observation was already processed
func (s *EvaluatorService) isDuplicate(event domain.PriceUpdated) bool {
	obs := observationOf(event)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, seen := s.lastSeen[event.Symbol]
	return seen && prev.price.Equal(obs.price) && prev.timestamp == obs.timestamp
}

func (s *EvaluatorService) recordObservation(event domain.PriceUpdated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[event.Symbol] = observationOf(event)
}

func (s *EvaluatorService) evaluateAlert(ctx context.Context, alert *domain.Alert, event domain.PriceUpdated) error {
	nowSatisfied := alert.SatisfiedBy(event.Price)

	s.mu.Lock()
	wasSatisfied := s.satisfied[alert.ID]
	s.satisfied[alert.ID] = nowSatisfied
	s.mu.Unlock()

	// Edge trigger: fire only on the not-satisfied to satisfied transition.
	if !nowSatisfied || wasSatisfied {
		return nil
	}

	triggered := domain.NewAlertTriggered(alert, event.Price)
	if err := s.Publisher.Publish(ctx, domain.TopicAlertTriggered, alert.Symbol, triggered); err != nil {
		// Roll back the armed state so the next update retries the fire.
		s.mu.Lock()
		s.satisfied[alert.ID] = wasSatisfied
		s.mu.Unlock()
		return fmt.Errorf("failed to publish alert triggered: %w", err)
	}

	s.Log.Info("alert triggered",
		slog.String("alert_id", alert.ID.String()),
		slog.String("symbol", alert.Symbol),
		slog.String("price", event.Price.String()),
		slog.String("threshold", alert.Threshold.String()))

	if alert.Repeat {
		return nil
	}

	// One-shot alerts deactivate after firing. The in-memory edge state is
	// cleared since the alert will no longer be listed.
	if err := s.AlertRepo.Save(ctx, alert.Deactivated()); err != nil {
		return fmt.Errorf("failed to deactivate alert: %w", err)
	}
	s.mu.Lock()
	delete(s.satisfied, alert.ID)
	s.mu.Unlock()
	return nil
}
