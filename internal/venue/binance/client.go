// Package binance implements the venue client for Binance spot and USDⓈ-M
// futures public endpoints.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/venue"
)

const name = "binance"

// Client is the REST client for Binance public market data.
type Client struct {
	baseURL    string
	futuresURL string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Binance client. baseURL is the spot API root
// (e.g. "https://api.binance.com"), futuresURL the USDⓈ-M root
// (e.g. "https://fapi.binance.com").
func New(baseURL, futuresURL string, ratePerSec float64) *Client {
	return &Client{
		baseURL:    baseURL,
		futuresURL: futuresURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return name }

// bookTicker is the Binance bookTicker payload shape (spot and futures).
type bookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// FetchQuote returns the spot best-bid/ask for the symbol. Binance uses the
// canonical symbol form directly (e.g. BTCUSDT).
func (c *Client) FetchQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	return c.fetchBookTicker(ctx, c.baseURL+"/api/v3/ticker/bookTicker", symbol)
}

// FetchPerpQuote returns the perpetual best-bid/ask for the symbol.
func (c *Client) FetchPerpQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	return c.fetchBookTicker(ctx, c.futuresURL+"/fapi/v1/ticker/bookTicker", symbol)
}

func (c *Client) fetchBookTicker(ctx context.Context, endpoint, symbol string) (domain.VenueQuote, error) {
	op := "book ticker " + symbol

	body, err := c.get(ctx, endpoint, url.Values{"symbol": {symbol}}, op)
	if err != nil {
		return domain.VenueQuote{}, err
	}

	var t bookTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}

	bid, err := strconv.ParseFloat(t.BidPrice, 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse bid %q", t.BidPrice)
	}
	ask, err := strconv.ParseFloat(t.AskPrice, 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse ask %q", t.AskPrice)
	}

	quote, err := domain.NewVenueQuote(name, symbol, bid, ask, time.Now().UTC())
	if err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}
	return quote, nil
}

// premiumIndex is the Binance futures premium index / funding payload.
type premiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
	Time            int64  `json:"time"`
}

// FetchFunding returns the most recent funding rate via the premium index.
func (c *Client) FetchFunding(ctx context.Context, symbol string) (domain.FundingQuote, error) {
	op := "premium index " + symbol

	body, err := c.get(ctx, c.futuresURL+"/fapi/v1/premiumIndex", url.Values{"symbol": {symbol}}, op)
	if err != nil {
		return domain.FundingQuote{}, err
	}

	var p premiumIndex
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.FundingQuote{}, venue.BadResponse(name, op, err)
	}
	fr, err := strconv.ParseFloat(p.LastFundingRate, 64)
	if err != nil {
		return domain.FundingQuote{}, venue.Badf(name, op, "parse funding rate %q", p.LastFundingRate)
	}

	return domain.FundingQuote{
		Venue:       name,
		Symbol:      symbol,
		FundingRate: fr,
		FundingTime: time.UnixMilli(p.NextFundingTime).UTC(),
	}, nil
}

// fundingRateRow is one entry of the funding rate history endpoint.
type fundingRateRow struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

// FetchFundingHistory returns up to limit recent funding observations.
func (c *Client) FetchFundingHistory(ctx context.Context, symbol string, limit int) ([]domain.FundingQuote, error) {
	op := "funding history " + symbol

	params := url.Values{"symbol": {symbol}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, c.futuresURL+"/fapi/v1/fundingRate", params, op)
	if err != nil {
		return nil, err
	}

	var rows []fundingRateRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, venue.BadResponse(name, op, err)
	}

	quotes := make([]domain.FundingQuote, 0, len(rows))
	// Binance returns oldest first; reverse to newest first.
	for i := len(rows) - 1; i >= 0; i-- {
		fr, err := strconv.ParseFloat(rows[i].FundingRate, 64)
		if err != nil {
			return nil, venue.Badf(name, op, "parse funding rate %q", rows[i].FundingRate)
		}
		quotes = append(quotes, domain.FundingQuote{
			Venue:       name,
			Symbol:      symbol,
			FundingRate: fr,
			FundingTime: time.UnixMilli(rows[i].FundingTime).UTC(),
		})
	}
	return quotes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, op string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, venue.Unavailable(name, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: build request: %w", name, op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, venue.Unavailable(name, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, venue.Unavailable(name, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, venue.Badf(name, op, "status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
