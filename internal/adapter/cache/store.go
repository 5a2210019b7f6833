package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors raised by Store operations. Callers distinguish a plain
// miss from corruption: a miss is the normal cache-aside fallback path,
// corruption indicates a versioning or serialization bug and must never be
// silently treated as a miss.
var (
	ErrMiss            = errors.New("cache miss")
	ErrValueTooLarge   = errors.New("cache value exceeds size limit")
	ErrNotSerializable = errors.New("cache value is not serializable")
	ErrCorrupted       = errors.New("cache entry is corrupted")
)

// DefaultMaxValueBytes bounds serialized entries at 50 MiB unless
// configured otherwise.
const DefaultMaxValueBytes = 50 * 1024 * 1024

// Backend is the minimal key/value surface the store needs: GET, SET with
// expiry, DEL. The Redis client implements it; tests use an in-memory fake.
type Backend interface {
	// Get retrieves the raw entry. Returns ErrMiss when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the raw entry with the given TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes the given keys; absent keys are not an error
	Del(ctx context.Context, keys ...string) error
}

// Store serializes values as JSON and reads/writes them through a Backend
// under version-namespaced keys. The version is fixed at construction from
// configuration; no process-wide mutable state.
type Store struct {
	backend  Backend
	version  string
	maxBytes int
}

// NewStore creates a Store. maxBytes <= 0 falls back to DefaultMaxValueBytes.
func NewStore(backend Backend, version string, maxBytes int) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxValueBytes
	}
	return &Store{
		backend:  backend,
		version:  version,
		maxBytes: maxBytes,
	}
}

// Key builds a namespaced key for the store's configured version
func (s *Store) Key(prefix, id string) Key {
	return Key{Prefix: prefix, Version: s.version, ID: id}
}

// Set serializes the value and writes it with the given TTL.
// A value that fails to serialize returns ErrNotSerializable; a serialized
// value over the configured maximum returns ErrValueTooLarge. In both cases
// nothing is written, so the backend never holds a partial oversized entry.
func (s *Store) Set(ctx context.Context, key Key, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: key %s: %v", ErrNotSerializable, key, err)
	}
	if len(data) > s.maxBytes {
		return fmt.Errorf("%w: key %s holds %d bytes, limit %d", ErrValueTooLarge, key, len(data), s.maxBytes)
	}
	if err := s.backend.Set(ctx, key.String(), data, ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Get reads the entry into dest. Returns ErrMiss when the key is absent and
// ErrCorrupted when a present entry cannot be deserialized.
func (s *Store) Get(ctx context.Context, key Key, dest any) error {
	data, err := s.backend.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return ErrMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: key %s: %v", ErrCorrupted, key, err)
	}
	return nil
}

// Delete removes the given keys
func (s *Store) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.String()
	}
	if err := s.backend.Del(ctx, raw...); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
