// Package okx implements the venue client for the OKX v5 public API. OKX
// instrument IDs are dash-separated (BTC-USDT, BTC-USDT-SWAP); canonical
// symbols are rewritten on the way in and mapped back on the way out.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/venue"
)

const name = "okx"

// quoteCurrencies are the quote assets recognized when splitting a canonical
// symbol into an OKX instId, longest first.
var quoteCurrencies = []string{"USDT", "USDC", "USD"}

// Client is the REST client for OKX public market data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates an OKX client. baseURL is e.g. "https://www.okx.com".
func New(baseURL string, ratePerSec float64) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return name }

// NormalizeSymbol rewrites a canonical symbol into an OKX spot instId, e.g.
// BTCUSDT -> BTC-USDT. Symbols with an unrecognized quote pass through as-is.
func NormalizeSymbol(symbol string) string {
	for _, q := range quoteCurrencies {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)] + "-" + q
		}
	}
	return symbol
}

// swapInstID returns the perpetual instId for a canonical symbol.
func swapInstID(symbol string) string {
	return NormalizeSymbol(symbol) + "-SWAP"
}

// apiResponse is the OKX v5 envelope; Data holds endpoint-specific rows.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tickerRow struct {
	InstID string `json:"instId"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
	Ts     string `json:"ts"`
}

// FetchQuote returns the spot best-bid/ask for the canonical symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	return c.fetchTicker(ctx, symbol, NormalizeSymbol(symbol))
}

// FetchPerpQuote returns the perpetual swap best-bid/ask.
func (c *Client) FetchPerpQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	return c.fetchTicker(ctx, symbol, swapInstID(symbol))
}

func (c *Client) fetchTicker(ctx context.Context, symbol, instID string) (domain.VenueQuote, error) {
	op := "ticker " + instID

	body, err := c.get(ctx, "/api/v5/market/ticker", url.Values{"instId": {instID}}, op)
	if err != nil {
		return domain.VenueQuote{}, err
	}

	var rows []tickerRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}
	if len(rows) == 0 {
		return domain.VenueQuote{}, venue.Badf(name, op, "empty ticker data")
	}

	bid, err := strconv.ParseFloat(rows[0].BidPx, 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse bid %q", rows[0].BidPx)
	}
	ask, err := strconv.ParseFloat(rows[0].AskPx, 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse ask %q", rows[0].AskPx)
	}
	ts := time.Now().UTC()
	if ms, err := strconv.ParseInt(rows[0].Ts, 10, 64); err == nil && ms > 0 {
		ts = time.UnixMilli(ms).UTC()
	}

	quote, err := domain.NewVenueQuote(name, symbol, bid, ask, ts)
	if err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}
	return quote, nil
}

type fundingRow struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	FundingTime     string `json:"fundingTime"`
	NextFundingTime string `json:"nextFundingTime"`
}

// FetchFunding returns the current funding rate for the perpetual swap.
func (c *Client) FetchFunding(ctx context.Context, symbol string) (domain.FundingQuote, error) {
	instID := swapInstID(symbol)
	op := "funding rate " + instID

	body, err := c.get(ctx, "/api/v5/public/funding-rate", url.Values{"instId": {instID}}, op)
	if err != nil {
		return domain.FundingQuote{}, err
	}

	var rows []fundingRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return domain.FundingQuote{}, venue.BadResponse(name, op, err)
	}
	if len(rows) == 0 {
		return domain.FundingQuote{}, venue.Badf(name, op, "empty funding data")
	}
	return rowToFunding(rows[0], symbol, op)
}

// FetchFundingHistory returns up to limit recent funding observations,
// newest first (OKX's native ordering).
func (c *Client) FetchFundingHistory(ctx context.Context, symbol string, limit int) ([]domain.FundingQuote, error) {
	instID := swapInstID(symbol)
	op := "funding history " + instID

	params := url.Values{"instId": {instID}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	body, err := c.get(ctx, "/api/v5/public/funding-rate-history", params, op)
	if err != nil {
		return nil, err
	}

	var rows []fundingRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, venue.BadResponse(name, op, err)
	}

	quotes := make([]domain.FundingQuote, 0, len(rows))
	for _, row := range rows {
		fq, err := rowToFunding(row, symbol, op)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, fq)
	}
	return quotes, nil
}

func rowToFunding(row fundingRow, symbol, op string) (domain.FundingQuote, error) {
	fr, err := strconv.ParseFloat(row.FundingRate, 64)
	if err != nil {
		return domain.FundingQuote{}, venue.Badf(name, op, "parse funding rate %q", row.FundingRate)
	}
	ft := time.Now().UTC()
	raw := row.NextFundingTime
	if raw == "" {
		raw = row.FundingTime
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		ft = time.UnixMilli(ms).UTC()
	}
	return domain.FundingQuote{Venue: name, Symbol: symbol, FundingRate: fr, FundingTime: ft}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, op string) (json.RawMessage, error) {
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

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, venue.BadResponse(name, op, err)
	}
	if envelope.Code != "0" {
		return nil, venue.Badf(name, op, "code %s: %s", envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}
