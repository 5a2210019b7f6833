// Package pricefeed fetches market prices from the CoinGecko HTTP API.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the public CoinGecko v3 API root
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	apiKeyHeader = "x-cg-demo-api-key"

	retryAttempts = 3
	retryBackoff  = 500 * time.Millisecond
)

// ErrAssetNotFound is returned when CoinGecko knows nothing about a coin id
var ErrAssetNotFound = errors.New("asset not found in coingecko")

// Quote is one market observation for a single asset
type Quote struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"current_price"`
	UpdatedAt time.Time       `json:"last_updated"`
}

// CoinGeckoClient calls the /coins/markets endpoint
type CoinGeckoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewCoinGeckoClient creates a client for the given API root. An empty
// baseURL selects the public API; an empty apiKey omits the key header.
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchQuotes retrieves current USD quotes for the given CoinGecko coin ids.
// Transient HTTP failures are retried a fixed number of times.
func (c *CoinGeckoClient) FetchQuotes(ctx context.Context, coinIDs []string) ([]Quote, error) {
	if len(coinIDs) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		quotes, err := c.fetchOnce(ctx, coinIDs)
		if err == nil || errors.Is(err, ErrAssetNotFound) {
			return quotes, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("coingecko request failed after %d attempts: %w", retryAttempts, lastErr)
}

// FetchQuote retrieves the current USD quote for a single CoinGecko coin id
func (c *CoinGeckoClient) FetchQuote(ctx context.Context, coinID string) (*Quote, error) {
	quotes, err := c.FetchQuotes(ctx, []string{coinID})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("coin %q: %w", coinID, ErrAssetNotFound)
	}
	return &quotes[0], nil
}

func (c *CoinGeckoClient) fetchOnce(ctx context.Context, coinIDs []string) ([]Quote, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", strings.Join(coinIDs, ","))
	params.Set("order", "market_cap_desc")
	params.Set("sparkline", "false")

	endpoint := c.baseURL + "/coins/markets?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build coingecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coingecko returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var quotes []Quote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("failed to decode coingecko response: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("coins %q: %w", strings.Join(coinIDs, ","), ErrAssetNotFound)
	}

	// Quotes come back symbol-lowercased; normalise for the rest of the pipeline.
	for i := range quotes {
		quotes[i].Symbol = strings.ToUpper(quotes[i].Symbol)
	}
	return quotes, nil
}
