package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/coinpulse/coinpulse-backend/internal/domain"
)

// MockPortfolioRepository is a mock implementation of the cached portfolio
// repository surface for testing
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, wallet string) (*domain.Portfolio, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) Save(ctx context.Context, portfolio *domain.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) Delete(ctx context.Context, wallet string) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockPortfolioRepository) GetTotalValue(ctx context.Context, wallet string) (*domain.Portfolio, decimal.Decimal, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, decimal.Zero, args.Error(2)
	}
	return args.Get(0).(*domain.Portfolio), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockPortfolioRepository) ListWalletsByAsset(ctx context.Context, ticker string) ([]string, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPortfolioRepository) InvalidateWallet(ctx context.Context, wallet string) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePortfolio() *domain.Portfolio {
	return &domain.Portfolio{
		WalletAddress: "0xabc",
		Assets: []domain.Asset{
			{Ticker: "BTC", Amount: decimal.NewFromInt(2), CurrentPrice: decimal.NewFromInt(50000), PreviousPrice: decimal.NewFromInt(50000)},
			{Ticker: "ETH", Amount: decimal.NewFromInt(10), CurrentPrice: decimal.NewFromInt(3000), PreviousPrice: decimal.NewFromInt(2500)},
		},
		UpdatedAt: time.Now().UTC(),
	}
}

func TestGetAnalytics_ComputesAllocationPerAsset(t *testing.T) {
	repo := new(MockPortfolioRepository)
	repo.On("GetByID", mock.Anything, "0xabc").Return(samplePortfolio(), nil)

	service := NewValuationService(repo, testLogger())
	analytics, err := service.GetAnalytics(context.Background(), "0xabc")

	assert.NoError(t, err)
	assert.Len(t, analytics, 2)
	// 100000 of 130000 total.
	assert.Equal(t, "BTC", analytics[0].Ticker)
	assert.True(t, analytics[0].PositionValue.Equal(decimal.NewFromInt(100000)))
	assert.True(t, analytics[0].Allocation.Round(2).Equal(decimal.RequireFromString("76.92")))
	assert.True(t, analytics[1].Allocation.Round(2).Equal(decimal.RequireFromString("23.08")))
	// BTC is flat, ETH moved 2500 -> 3000.
	assert.True(t, analytics[0].ChangePct.IsZero())
	assert.True(t, analytics[1].ChangePct.Equal(decimal.NewFromInt(20)))
}

func TestGetAnalytics_UnknownWalletPropagatesNotFound(t *testing.T) {
	repo := new(MockPortfolioRepository)
	repo.On("GetByID", mock.Anything, "0xmissing").Return(nil, domain.ErrNotFound)

	service := NewValuationService(repo, testLogger())
	_, err := service.GetAnalytics(context.Background(), "0xmissing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsumePriceUpdate_InvalidatesEveryHoldingWallet(t *testing.T) {
	repo := new(MockPortfolioRepository)
	repo.On("ListWalletsByAsset", mock.Anything, "BTC").Return([]string{"0xabc", "0xdef"}, nil)
	repo.On("InvalidateWallet", mock.Anything, "0xabc").Return(nil)
	repo.On("InvalidateWallet", mock.Anything, "0xdef").Return(nil)

	event := domain.NewPriceUpdated("BTC", "Bitcoin", decimal.NewFromInt(51000), time.Now().UTC())
	payload, err := json.Marshal(event)
	assert.NoError(t, err)

	service := NewValuationService(repo, testLogger())
	assert.NoError(t, service.ConsumePriceUpdate(context.Background(), payload))

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "InvalidateWallet", 2)
}

func TestConsumePriceUpdate_NoHoldersIsANoOp(t *testing.T) {
	repo := new(MockPortfolioRepository)
	repo.On("ListWalletsByAsset", mock.Anything, "DOGE").Return([]string{}, nil)

	event := domain.NewPriceUpdated("DOGE", "Dogecoin", decimal.NewFromInt(1), time.Now().UTC())
	payload, _ := json.Marshal(event)

	service := NewValuationService(repo, testLogger())
	assert.NoError(t, service.ConsumePriceUpdate(context.Background(), payload))

	repo.AssertNotCalled(t, "InvalidateWallet", mock.Anything, mock.Anything)
}

func TestConsumePriceUpdate_OneFailedInvalidationDoesNotStopTheRest(t *testing.T) {
	repo := new(MockPortfolioRepository)
	repo.On("ListWalletsByAsset", mock.Anything, "BTC").Return([]string{"0xabc", "0xdef"}, nil)
	repo.On("InvalidateWallet", mock.Anything, "0xabc").Return(errors.New("redis down"))
	repo.On("InvalidateWallet", mock.Anything, "0xdef").Return(nil)

	event := domain.NewPriceUpdated("BTC", "Bitcoin", decimal.NewFromInt(51000), time.Now().UTC())
	payload, _ := json.Marshal(event)

	service := NewValuationService(repo, testLogger())
	assert.NoError(t, service.ConsumePriceUpdate(context.Background(), payload))

	repo.AssertNumberOfCalls(t, "InvalidateWallet", 2)
}
