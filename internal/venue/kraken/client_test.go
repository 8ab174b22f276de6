package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphayield/arbscan/internal/domain"
)

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "XBTUSDT", NormalizeSymbol("BTCUSDT"))
	assert.Equal(t, "XBTUSD", NormalizeSymbol("BTCUSD"))
	assert.Equal(t, "ETHUSDT", NormalizeSymbol("ETHUSDT"))
}

func TestFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/Ticker", r.URL.Path)
		assert.Equal(t, "XBTUSDT", r.URL.Query().Get("pair"))
		// Kraken keys the result by its own pair code, not the requested one.
		w.Write([]byte(`{"error":[],"result":{"XBTUSDT":{"a":["50000.50000","1","1.000"],"b":["50000.10000","2","2.000"]}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 100)
	quote, err := c.FetchQuote(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	// The quote carries the canonical symbol, not Kraken's pair code.
	assert.Equal(t, "kraken", quote.Venue)
	assert.Equal(t, "BTCUSDT", quote.Symbol)
	assert.Equal(t, 50000.10, quote.Bid)
	assert.Equal(t, 50000.50, quote.Ask)
}

func TestFetchQuoteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EQuery:Unknown asset pair"],"result":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 100)
	_, err := c.FetchQuote(context.Background(), "NOPEUSDT")
	require.ErrorIs(t, err, domain.ErrBadResponse)
	assert.Contains(t, err.Error(), "Unknown asset pair")
}

func TestFetchQuoteEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 100)
	_, err := c.FetchQuote(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, domain.ErrBadResponse)
}

func TestFetchQuoteVenueUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, 100)
	_, err := c.FetchQuote(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, domain.ErrVenueUnavailable)
}
