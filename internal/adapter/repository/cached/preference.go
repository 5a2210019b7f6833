package cached

import (
	"log/slog"
	"time"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/cache"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

const preferencePrefix = "user-preference"

// PreferenceRepository decorates the user preference repository with
// cache-aside reads keyed by email. Preferences sit on the hot path of
// every dispatched notification, so reads rarely touch the database.
type PreferenceRepository struct {
	*Repository[string, domain.UserPreference]
}

// NewPreferenceRepository creates the cached preference repository
func NewPreferenceRepository(inner domain.PreferenceRepository, store *cache.Store, ttl time.Duration, log *slog.Logger) *PreferenceRepository {
	if log == nil {
		log = slog.Default()
	}
	generic := New[string, domain.UserPreference](inner, store, Binding[string, domain.UserPreference]{
		Prefix:   preferencePrefix,
		KeyID:    func(email string) string { return email },
		Identity: func(p *domain.UserPreference) string { return p.Email },
		TTL:      ttl,
	}, log)

	return &PreferenceRepository{Repository: generic}
}
