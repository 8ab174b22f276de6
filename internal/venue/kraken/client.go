// Package kraken implements the spot venue client for the Kraken public API.
// Kraken belongs to the XBT symbol family: canonical symbols are rewritten
// (BTCUSDT -> XBTUSDT) before the call and mapped back on the way out.
package kraken

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

const name = "kraken"

// Client is the REST client for Kraken public market data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Kraken client. baseURL is e.g. "https://api.kraken.com".
func New(baseURL string, ratePerSec float64) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return name }

// NormalizeSymbol rewrites a canonical symbol into Kraken's pair notation.
func NormalizeSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "BTC") {
		return "XBT" + strings.TrimPrefix(symbol, "BTC")
	}
	return symbol
}

// tickerResponse is the Kraken public Ticker envelope. Result keys are
// Kraken's own pair codes, which do not always echo the requested pair.
type tickerResponse struct {
	Error  []string                    `json:"error"`
	Result map[string]tickerPairResult `json:"result"`
}

type tickerPairResult struct {
	Ask []string `json:"a"` // [price, whole lot volume, lot volume]
	Bid []string `json:"b"`
}

// FetchQuote returns the spot best-bid/ask for the canonical symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	op := "ticker " + symbol

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.VenueQuote{}, venue.Unavailable(name, op, err)
	}

	pair := NormalizeSymbol(symbol)
	endpoint := c.baseURL + "/0/public/Ticker?" + url.Values{"pair": {pair}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.VenueQuote{}, fmt.Errorf("%s: %s: build request: %w", name, op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.VenueQuote{}, venue.Unavailable(name, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.VenueQuote{}, venue.Unavailable(name, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.VenueQuote{}, venue.Badf(name, op, "status %d", resp.StatusCode)
	}

	var tr tickerResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}
	if len(tr.Error) > 0 {
		return domain.VenueQuote{}, venue.Badf(name, op, "api error: %s", strings.Join(tr.Error, "; "))
	}
	if len(tr.Result) == 0 {
		return domain.VenueQuote{}, venue.Badf(name, op, "empty result")
	}

	// Kraken keys the result by its internal pair code; take the single entry.
	var pr tickerPairResult
	for _, v := range tr.Result {
		pr = v
		break
	}
	if len(pr.Bid) == 0 || len(pr.Ask) == 0 {
		return domain.VenueQuote{}, venue.Badf(name, op, "missing bid/ask arrays")
	}

	bid, err := strconv.ParseFloat(pr.Bid[0], 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse bid %q", pr.Bid[0])
	}
	ask, err := strconv.ParseFloat(pr.Ask[0], 64)
	if err != nil {
		return domain.VenueQuote{}, venue.Badf(name, op, "parse ask %q", pr.Ask[0])
	}

	// Normalize back to the canonical symbol so downstream keys line up.
	quote, err := domain.NewVenueQuote(name, symbol, bid, ask, time.Now().UTC())
	if err != nil {
		return domain.VenueQuote{}, venue.BadResponse(name, op, err)
	}
	return quote, nil
}
