// Package bybit implements the venue client for the Bybit v5 public market
// API (spot and linear perpetual categories).
package bybit

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

const name = "bybit"

// Client is the REST client for Bybit public market data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Bybit client. baseURL is e.g. "https://api.bybit.com".
func New(baseURL string, ratePerSec float64) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return name }

// tickersResponse is the Bybit v5 /market/tickers envelope.
type tickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []tickerRow `json:"list"`
	} `json:"result"`
}

type tickerRow struct {
	Symbol          string `json:"symbol"`
	Bid1Price       string `json:"bid1Price"`
	Ask1Price       string `json:"ask1Price"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

// FetchQuote returns the spot best-bid/ask. Bybit uses the canonical symbol
// form directly (e.g. BTCUSDT).
func (c *Client) FetchQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	row, err := c.ticker(ctx, "spot", symbol)
	if err != nil {
		return domain.VenueQuote{}, err
	}
	return rowToQuote(row, symbol)
}

// FetchPerpQuote returns the linear perpetual best-bid/ask.
func (c *Client) FetchPerpQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	row, err := c.ticker(ctx, "linear", symbol)
	if err != nil {
		return domain.VenueQuote{}, err
	}
	return rowToQuote(row, symbol)
}

// FetchFunding returns the current funding rate carried on the linear ticker.
func (c *Client) FetchFunding(ctx context.Context, symbol string) (domain.FundingQuote, error) {
	op := "funding " + symbol

	row, err := c.ticker(ctx, "linear", symbol)
	if err != nil {
		return domain.FundingQuote{}, err
	}
	fr, err := strconv.ParseFloat(row.FundingRate, 64)
	if err != nil {
		return domain.FundingQuote{}, venue.Badf(name, op, "parse funding rate %q", row.FundingRate)
	}
	ft := time.Now().UTC()
	if ms, err := strconv.ParseInt(row.NextFundingTime, 10, 64); err == nil && ms > 0 {
		ft = time.UnixMilli(ms).UTC()
	}
	return domain.FundingQuote{Venue: name, Symbol: symbol, FundingRate: fr, FundingTime: ft}, nil
}

// fundingHistoryResponse is the /v5/market/funding/history envelope.
type fundingHistoryResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol               string `json:"symbol"`
			FundingRate          string `json:"fundingRate"`
			FundingRateTimestamp string `json:"fundingRateTimestamp"`
		} `json:"list"`
	} `json:"result"`
}

// FetchFundingHistory returns up to limit recent funding observations,
// newest first (Bybit's native ordering).
func (c *Client) FetchFundingHistory(ctx context.Context, symbol string, limit int) ([]domain.FundingQuote, error) {
	op := "funding history " + symbol

	params := url.Values{"category": {"linear"}, "symbol": {symbol}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "/v5/market/funding/history", params, op)
	if err != nil {
		return nil, err
	}

	var resp fundingHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, venue.BadResponse(name, op, err)
	}
	if resp.RetCode != 0 {
		return nil, venue.Badf(name, op, "retCode %d: %s", resp.RetCode, resp.RetMsg)
	}

	quotes := make([]domain.FundingQuote, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		fr, err := strconv.ParseFloat(row.FundingRate, 64)
		if err != nil {
			return nil, venue.Badf(name, op, "parse funding rate %q", row.FundingRate)
		}
		ft := time.Now().UTC()
		if ms, err := strconv.ParseInt(row.FundingRateTimestamp, 10, 64); err == nil && ms > 0 {
			ft = time.UnixMilli(ms).UTC()
		}
		quotes = append(quotes, domain.FundingQuote{
			Venue:       name,
			Symbol:      symbol,
			FundingRate: fr,
			FundingTime: ft,
		})
	}
	return quotes, nil
}

func (c *Client) ticker(ctx context.Context, category, symbol string) (tickerRow, error) {
	op := category + " ticker " + symbol

	params := url.Values{"category": {category}, "symbol": {symbol}}
	body, err := c.get(ctx, "/v5/market/tickers", params, op)
	if err != nil {
		return tickerRow{}, err
	}

	var resp tickersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return tickerRow{}, venue.BadResponse(name, op, err)
	}
	if resp.RetCode != 0 {
		return tickerRow{}, venue.Badf(name, op, "retCode %d: %s", resp.RetCode, resp.RetMsg)
	}
	if len(resp.Result.List) == 0 {
		return tickerRow{}, venue.Badf(name, op, "empty ticker list")
	}
	return resp.Result.List[0], nil
}

func rowToQuote(row tickerRow, symbol string) (domain.VenueQuote, error) {
	op := "ticker " + symbol

	bid, err := strconv.ParseFloat(row.Bid1Price, 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse bid %q", row.Bid1Price)
	}
	ask, err := strconv.ParseFloat(row.Ask1Price, 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse ask %q", row.Ask1Price)
	}
	quote, err := domain.NewVenueQuote(name, symbol, bid, ask, time.Now().UTC())
	if err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}
	return quote, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, op string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, venue.Unavailable(name, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
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
		return nil, venue.Badf(name, op, "status %d", resp.StatusCode)
	}
	return body, nil
}
