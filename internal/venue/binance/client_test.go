package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphayield/arbscan/internal/domain"
)

func TestFetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/bookTicker", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"50000.10","askPrice":"50000.50"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, 100)
	quote, err := c.FetchQuote(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "binance", quote.Venue)
	assert.Equal(t, "BTCUSDT", quote.Symbol)
	assert.Equal(t, 50000.10, quote.Bid)
	assert.Equal(t, 50000.50, quote.Ask)
	assert.False(t, quote.Timestamp.IsZero())
}

func TestFetchQuoteBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, 100)
	_, err := c.FetchQuote(context.Background(), "NOPEUSDT")
	require.ErrorIs(t, err, domain.ErrBadResponse)
}

func TestFetchQuoteMalformedPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"not-a-number","askPrice":"1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, 100)
	_, err := c.FetchQuote(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, domain.ErrBadResponse)
}

func TestFetchQuoteVenueUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, srv.URL, 100)
	_, err := c.FetchQuote(context.Background(), "BTCUSDT")
	require.ErrorIs(t, err, domain.ErrVenueUnavailable)
}

func TestFetchPerpQuoteUsesFuturesHost(t *testing.T) {
	futures := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/bookTicker", r.URL.Path)
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"50075.00","askPrice":"50076.00"}`))
	}))
	defer futures.Close()

	c := New("http://spot.invalid", futures.URL, 100)
	quote, err := c.FetchPerpQuote(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 50075.0, quote.Bid)
	assert.Equal(t, 50076.0, quote.Ask)
}

func TestFetchFunding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
		w.Write([]byte(`{"symbol":"BTCUSDT","lastFundingRate":"0.00010000","nextFundingTime":1756454400000,"time":1756433000000}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, 100)
	fq, err := c.FetchFunding(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "binance", fq.Venue)
	assert.Equal(t, 0.0001, fq.FundingRate)
	assert.Equal(t, int64(1756454400), fq.FundingTime.Unix())
}

func TestFetchFundingHistoryNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/fundingRate", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		// Binance returns oldest first.
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","fundingRate":"0.00010","fundingTime":1756404000000},
			{"symbol":"BTCUSDT","fundingRate":"0.00020","fundingTime":1756432800000},
			{"symbol":"BTCUSDT","fundingRate":"0.00030","fundingTime":1756461600000}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, 100)
	history, err := c.FetchFundingHistory(context.Background(), "BTCUSDT", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, 0.0003, history[0].FundingRate)
	assert.Equal(t, 0.0002, history[1].FundingRate)
	assert.Equal(t, 0.0001, history[2].FundingRate)
	assert.True(t, history[0].FundingTime.After(history[2].FundingTime))
}
