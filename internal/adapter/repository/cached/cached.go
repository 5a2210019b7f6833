// Package cached decorates domain repositories with cache-aside reads and
// invalidating writes. The pattern follows the CachedRepository approach:
// the wrapped repository stays the single source of truth, the decorator
// only decides when to consult the cache versus delegate.
package cached

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coinpulse/coinpulse-backend/internal/adapter/cache"
	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// Binding configures how one entity kind maps onto cache keys
type Binding[ID comparable, T any] struct {
	// Prefix of the primary read view
	Prefix string

	// KeyID renders the natural key as a cache identifier
	KeyID func(id ID) string

	// Identity extracts the natural key from an entity
	Identity func(entity *T) ID

	// Views enumerates derived view keys that a write to the entity must
	// also invalidate. Entity may be nil when it could not be loaded; the
	// builder then returns whatever can be derived from the id alone.
	Views func(id ID, entity *T) []cache.Key

	// TTL applied to every populated entry
	TTL time.Duration
}

// Repository is a generic cache-aside decorator over any domain repository.
// Reads are served from the cache when possible; writes always delegate
// first and invalidate only after the durable store has committed.
type Repository[ID comparable, T any] struct {
	inner   domain.Repository[ID, T]
	store   *cache.Store
	binding Binding[ID, T]
	log     *slog.Logger
}

// New creates a cache-aside decorator around inner
func New[ID comparable, T any](inner domain.Repository[ID, T], store *cache.Store, binding Binding[ID, T], log *slog.Logger) *Repository[ID, T] {
	if log == nil {
		log = slog.Default()
	}
	return &Repository[ID, T]{
		inner:   inner,
		store:   store,
		binding: binding,
		log:     log,
	}
}

func (r *Repository[ID, T]) readKey(id ID) cache.Key {
	return r.store.Key(r.binding.Prefix, r.binding.KeyID(id))
}

func (r *Repository[ID, T]) writeKeys(id ID, entity *T) []cache.Key {
	keys := []cache.Key{r.readKey(id)}
	if r.binding.Views != nil {
		keys = append(keys, r.binding.Views(id, entity)...)
	}
	return keys
}

// GetByID serves the entity from the cache when present, otherwise loads it
// from the wrapped repository and populates the cache. A not-found result is
// never cached, so a fast-following create is not masked by a stale negative
// entry. Cache failures degrade to the delegate path; corruption is surfaced
// in the log and the broken entry is dropped.
func (r *Repository[ID, T]) GetByID(ctx context.Context, id ID) (*T, error) {
	key := r.readKey(id)

	out := new(T)
	err := r.store.Get(ctx, key, out)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, cache.ErrMiss):
		// fall through to the repository
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

	entity, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.store.Set(ctx, key, entity, r.binding.TTL); err != nil {
		switch {
		case errors.Is(err, cache.ErrValueTooLarge):
			r.log.Warn("value too large to cache, serving uncached",
				"key", key.String(), "error", err)
		default:
			r.log.Warn("failed to populate cache", "key", key.String(), "error", err)
		}
	}
	return entity, nil
}

// Save delegates to the wrapped repository and, only on success,
// invalidates every view key bound to the entity. The just-written value is
// deliberately not re-cached: the next read repopulates from the durable
// store, so a concurrently rolled-back write can never linger in the cache.
func (r *Repository[ID, T]) Save(ctx context.Context, entity *T) error {
	if err := r.inner.Save(ctx, entity); err != nil {
		// cache untouched: it still reflects the last committed state
		return err
	}
	r.invalidate(ctx, r.binding.Identity(entity), entity)
	return nil
}

// Delete delegates to the wrapped repository and invalidates on success.
// The entity is loaded first so that derived views can be enumerated
// exhaustively even though the caller only supplies the id.
func (r *Repository[ID, T]) Delete(ctx context.Context, id ID) error {
	entity, err := r.inner.GetByID(ctx, id)
	if err != nil {
		entity = nil
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id, entity)
	return nil
}

func (r *Repository[ID, T]) invalidate(ctx context.Context, id ID, entity *T) {
	keys := r.writeKeys(id, entity)
	if err := r.store.Delete(ctx, keys...); err != nil {
		// stale entry remains until its TTL expires; accepted consistency window
		r.log.Error("cache invalidation failed after committed write",
			"prefix", r.binding.Prefix, "error", err)
	}
}
