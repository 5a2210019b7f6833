package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a single position inside a portfolio. PreviousPrice is the
// observation before the current one, zero when no history exists yet.
type Asset struct {
	Ticker        string
	Amount        decimal.Decimal
	CurrentPrice  decimal.Decimal
	PreviousPrice decimal.Decimal
}

// PositionValue returns amount * current price
func (a *Asset) PositionValue() decimal.Decimal {
	return a.Amount.Mul(a.CurrentPrice)
}

// Portfolio represents a wallet's holdings with their latest prices.
// WalletAddress is the natural key.
type Portfolio struct {
	WalletAddress string
	Assets        []Asset
	UpdatedAt     time.Time
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if p.WalletAddress == "" {
		return fmt.Errorf("%w: wallet address cannot be empty", ErrValidation)
	}
	for _, a := range p.Assets {
		if len(a.Ticker) < 3 {
			return fmt.Errorf("%w: ticker must be at least 3 characters long", ErrValidation)
		}
		if a.Amount.IsNegative() {
			return fmt.Errorf("%w: asset amount cannot be negative", ErrValidation)
		}
	}
	return nil
}

// TotalValue sums the position values of all assets
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Assets {
		total = total.Add(p.Assets[i].PositionValue())
	}
	return total
}

// Holds reports whether the portfolio contains the given ticker
func (p *Portfolio) Holds(ticker string) bool {
	for i := range p.Assets {
		if p.Assets[i].Ticker == ticker {
			return true
		}
	}
	return false
}

// AssetAnalytics is a derived per-asset view: position value, share of the
// portfolio, and price change since the previous observation.
type AssetAnalytics struct {
	Ticker        string
	Amount        decimal.Decimal
	CurrentPrice  decimal.Decimal
	PositionValue decimal.Decimal
	Allocation    decimal.Decimal
	ChangePct     decimal.Decimal
}

// Allocation returns the percentage share of assetValue in totalValue
func Allocation(assetValue, totalValue decimal.Decimal) decimal.Decimal {
	if totalValue.IsZero() {
		return decimal.Zero
	}
	return assetValue.Div(totalValue).Mul(decimal.NewFromInt(100))
}

// Analytics computes the per-asset analytics view for the portfolio
func (p *Portfolio) Analytics() []AssetAnalytics {
	total := p.TotalValue()
	out := make([]AssetAnalytics, 0, len(p.Assets))
	for i := range p.Assets {
		value := p.Assets[i].PositionValue()
		out = append(out, AssetAnalytics{
			Ticker:        p.Assets[i].Ticker,
			Amount:        p.Assets[i].Amount,
			CurrentPrice:  p.Assets[i].CurrentPrice,
			PositionValue: value,
			Allocation:    Allocation(value, total),
			ChangePct:     ChangePercent(p.Assets[i].PreviousPrice, p.Assets[i].CurrentPrice),
		})
	}
	return out
}
