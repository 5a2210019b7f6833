package cached

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/cache"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

const (
	alertPrefix        = "alert"
	activeAlertsPrefix = "active-alerts"
)

// AlertRepository decorates an alert repository with cache-aside reads.
// Besides the per-id view it maintains a per-symbol active-alerts list view
// consumed on every price tick; saving any alert invalidates both.
type AlertRepository struct {
	*Repository[uuid.UUID, domain.Alert]

	inner domain.AlertRepository
	store *cache.Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewAlertRepository creates the cached alert repository
func NewAlertRepository(inner domain.AlertRepository, store *cache.Store, ttl time.Duration, log *slog.Logger) *AlertRepository {
	if log == nil {
		log = slog.Default()
	}
	generic := New[uuid.UUID, domain.Alert](inner, store, Binding[uuid.UUID, domain.Alert]{
		Prefix:   alertPrefix,
		KeyID:    func(id uuid.UUID) string { return id.String() },
		Identity: func(a *domain.Alert) uuid.UUID { return a.ID },
		Views: func(_ uuid.UUID, a *domain.Alert) []cache.Key {
			if a == nil {
				return nil
			}
			return []cache.Key{store.Key(activeAlertsPrefix, a.Symbol)}
		},
		TTL: ttl,
	}, log)

	return &AlertRepository{
		Repository: generic,
		inner:      inner,
		store:      store,
		ttl:        ttl,
		log:        log,
	}
}

// ListActiveBySymbol serves the active alert list for a symbol from the
// cache, falling back to the wrapped repository on miss. The list view is
// safe to cache even when empty because every alert write invalidates it.
func (r *AlertRepository) ListActiveBySymbol(ctx context.Context, symbol string) ([]*domain.Alert, error) {
	key := r.store.Key(activeAlertsPrefix, symbol)

	var cachedList []*domain.Alert
	err := r.store.Get(ctx, key, &cachedList)
	switch {
	case err == nil:
		return cachedList, nil
	case errors.Is(err, cache.ErrMiss):
	case errors.Is(err, cache.ErrCorrupted):
		r.log.Error("cache entry corrupted, rebuilding from repository",
			"key", key.String(), "error", err)
		if delErr := r.store.Delete(ctx, key); delErr != nil {
			r.log.Error("failed to drop corrupted cache entry", "key", key.String(), "error", delErr)
		}
	default:
		r.log.Error("cache read failed, falling back to repository",
			"key", key.String(), "error", err)
	}

	alerts, err := r.inner.ListActiveBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, key, alerts, r.ttl); err != nil {
		r.log.Warn("failed to populate active alerts cache", "key", key.String(), "error", err)
	}
	return alerts, nil
}

// ListByEmail delegates directly; the owner-facing listing is rare enough
// that it does not earn a cached view.
func (r *AlertRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Alert, error) {
	return r.inner.ListByEmail(ctx, email)
}
