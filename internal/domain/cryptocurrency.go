package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cryptocurrency represents a tracked asset. Symbol is the natural key
// used across the pipeline (cache keys, alert lookups, bus partitioning).
type Cryptocurrency struct {
	ID          uuid.UUID
	Symbol      string
	Name        string
	CoinGeckoID string
	LastPrice   decimal.Decimal
	UpdatedAt   time.Time
}

// Validate ensures the cryptocurrency adheres to domain rules
func (c *Cryptocurrency) Validate() error {
	if len(c.Symbol) < 3 || len(c.Symbol) > 100 {
		return fmt.Errorf("%w: symbol must be between 3 and 100 characters", ErrValidation)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: cryptocurrency name cannot be empty", ErrValidation)
	}
	return nil
}

// PricePoint is a single observed price for an asset
type PricePoint struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// Validate ensures the price point adheres to domain rules
func (p *PricePoint) Validate() error {
	if p.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if p.Timestamp.After(time.Now().UTC()) {
		return fmt.Errorf("%w: price timestamp cannot be in the future", ErrValidation)
	}
	return nil
}

// ChangePercent returns the percentage change from old to new price.
// A zero old price means there is no prior observation to compare
// against, so the change is reported as zero.
func ChangePercent(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	if oldPrice.IsZero() {
		return decimal.Zero
	}
	return newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100))
}
