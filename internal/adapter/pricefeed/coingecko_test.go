package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFetchQuotes_DecodesMarketResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "test-key", r.Header.Get("x-cg-demo-api-key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":50000.25,"last_updated":"2025-06-01T12:00:00Z"},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3000.5,"last_updated":"2025-06-01T12:00:00Z"}
		]`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "test-key", 5*time.Second)
	quotes, err := client.FetchQuotes(context.Background(), []string{"bitcoin", "ethereum"})

	assert.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.Equal(t, "BTC", quotes[0].Symbol)
	assert.Equal(t, "Bitcoin", quotes[0].Name)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("50000.25")))
	assert.Equal(t, "ETH", quotes[1].Symbol)
}

func TestFetchQuotes_EmptyBodyMeansUnknownAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "", 5*time.Second)
	quotes, err := client.FetchQuotes(context.Background(), []string{"no-such-coin"})

	assert.Nil(t, quotes)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestFetchQuotes_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":42000,"last_updated":"2025-06-01T12:00:00Z"}]`))
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "", 5*time.Second)
	quote, err := client.FetchQuote(context.Background(), "bitcoin")

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(42000)))
}

func TestFetchQuotes_GivesUpAfterRepeatedFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "", 5*time.Second)
	_, err := client.FetchQuotes(context.Background(), []string{"bitcoin"})

	assert.Error(t, err)
	assert.Equal(t, retryAttempts, calls)
}

func TestFetchQuotes_NoIDsIsANoOp(t *testing.T) {
	client := NewCoinGeckoClient("http://unreachable.invalid", "", time.Second)
	quotes, err := client.FetchQuotes(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, quotes)
}
