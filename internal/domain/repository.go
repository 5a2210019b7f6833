package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the capability surface shared by every entity kind. Both
// the durable repositories and the cache-aside decorator implement it, so
// callers depend on the interface and never on where a read was served
// from. ID is the entity's natural key.
type Repository[ID comparable, T any] interface {
	// GetByID retrieves an entity by its natural key.
	// Returns ErrNotFound when no entity matches.
	GetByID(ctx context.Context, id ID) (*T, error)

	// Save inserts or replaces the entity
	Save(ctx context.Context, entity *T) error

	// Delete removes the entity by its natural key
	Delete(ctx context.Context, id ID) error
}

// AlertRepository defines the interface for alert persistence operations
type AlertRepository interface {
	Repository[uuid.UUID, Alert]

	// ListActiveBySymbol retrieves all active alerts for a cryptocurrency symbol
	ListActiveBySymbol(ctx context.Context, symbol string) ([]*Alert, error)

	// ListByEmail retrieves all alerts owned by the given email
	ListByEmail(ctx context.Context, email string) ([]*Alert, error)
}

// CryptocurrencyRepository defines the interface for cryptocurrency
// persistence operations, keyed by symbol
type CryptocurrencyRepository interface {
	Repository[string, Cryptocurrency]

	// SavePrice appends a price observation and updates the asset's last price
	SavePrice(ctx context.Context, point *PricePoint) error
}

// PreferenceRepository defines the interface for user preference
// persistence operations, keyed by email
type PreferenceRepository interface {
	Repository[string, UserPreference]
}

// NotificationRepository defines the interface for notification
// persistence operations
type NotificationRepository interface {
	// Save inserts a new notification
	Save(ctx context.Context, n *Notification) error

	// Update replaces an existing notification (status transitions)
	Update(ctx context.Context, n *Notification) error

	// GetByIdempotencyKey retrieves a notification by its idempotency key.
	// Returns ErrNotFound when the key was never reserved.
	GetByIdempotencyKey(ctx context.Context, key string) (*Notification, error)
}

// PortfolioRepository defines the interface for portfolio persistence
// operations, keyed by wallet address
type PortfolioRepository interface {
	Repository[string, Portfolio]

	// GetTotalValue retrieves the portfolio and its total value in one read
	GetTotalValue(ctx context.Context, walletAddress string) (*Portfolio, decimal.Decimal, error)

	// ListWalletsByAsset retrieves the wallet addresses of every portfolio
	// holding the given ticker
	ListWalletsByAsset(ctx context.Context, ticker string) ([]string, error)
}
