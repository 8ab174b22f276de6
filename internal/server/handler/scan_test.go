package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/scanner"
	"github.com/alphayield/arbscan/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// stubScanService implements ScanService with canned responses.
type stubScanService struct {
	scanResult domain.ScanResult
	scanErr    error
	quotes     []domain.VenueQuote
	pricesErr  error
	analyze    service.AnalyzeResult
	analyzeErr error
	status     domain.EngineStatus
	state      scanner.ScanState
	lastScan   time.Time
	recent     []domain.ArbitrageOpportunity
	recentErr  error

	gotScanReq scanner.ScanRequest
	gotSymbol  string
	gotLimit   int
}

func (s *stubScanService) Scan(ctx context.Context, req scanner.ScanRequest) (domain.ScanResult, error) {
	s.gotScanReq = req
	return s.scanResult, s.scanErr
}

func (s *stubScanService) Prices(ctx context.Context, symbol string) ([]domain.VenueQuote, error) {
	s.gotSymbol = symbol
	return s.quotes, s.pricesErr
}

func (s *stubScanService) Analyze(ctx context.Context, req service.AnalyzeRequest) (service.AnalyzeResult, error) {
	return s.analyze, s.analyzeErr
}

func (s *stubScanService) Status(ctx context.Context) (domain.EngineStatus, scanner.ScanState, time.Time) {
	return s.status, s.state, s.lastScan
}

func (s *stubScanService) Recent(ctx context.Context, symbol string, limit int) ([]domain.ArbitrageOpportunity, error) {
	s.gotSymbol = symbol
	s.gotLimit = limit
	return s.recent, s.recentErr
}

func TestScanReturnsResult(t *testing.T) {
	svc := &stubScanService{
		scanResult: domain.ScanResult{
			Opportunities: []domain.ArbitrageOpportunity{{Symbol: "BTCUSDT", NetProfit: 17.46}},
			Scanned:       8,
			Found:         1,
		},
	}
	h := NewScanHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var result domain.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Found)
	require.Len(t, result.Opportunities, 1)
	assert.Equal(t, "BTCUSDT", result.Opportunities[0].Symbol)
}

func TestScanRequestBody(t *testing.T) {
	t.Run("overrides are forwarded", func(t *testing.T) {
		svc := &stubScanService{}
		h := NewScanHandler(svc, testLogger())

		body := `{"symbols":["ETHUSDT","SOLUSDT"],"min_spread_percent":0.5}`
		rec := httptest.NewRecorder()
		h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ETHUSDT", "SOLUSDT"}, svc.gotScanReq.Symbols)
		assert.Equal(t, 0.5, svc.gotScanReq.MinSpreadPercent)
	})

	t.Run("empty body scans the configured symbols", func(t *testing.T) {
		svc := &stubScanService{}
		h := NewScanHandler(svc, testLogger())

		rec := httptest.NewRecorder()
		h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, svc.gotScanReq.Symbols)
		assert.Zero(t, svc.gotScanReq.MinSpreadPercent)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewScanHandler(&stubScanService{}, testLogger())

		rec := httptest.NewRecorder()
		h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader("{not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative threshold", func(t *testing.T) {
		h := NewScanHandler(&stubScanService{}, testLogger())

		body := `{"min_spread_percent":-1}`
		rec := httptest.NewRecorder()
		h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "min_spread_percent")
	})
}

func TestScanConflict(t *testing.T) {
	svc := &stubScanService{scanErr: domain.ErrScanInProgress}
	h := NewScanHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")
}

func TestScanCancelled(t *testing.T) {
	svc := &stubScanService{scanErr: domain.ErrScanCancelled}
	h := NewScanHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Scan(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
}

func TestPrices(t *testing.T) {
	svc := &stubScanService{
		quotes: []domain.VenueQuote{
			{Venue: "binance", Symbol: "BTCUSDT", Bid: 50000.1, Ask: 50000.5},
			{Venue: "kraken", Symbol: "BTCUSDT", Bid: 50400.0, Ask: 50400.8},
		},
	}
	h := NewScanHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/prices/BTCUSDT", nil)
	req.SetPathValue("symbol", "BTCUSDT")
	rec := httptest.NewRecorder()
	h.Prices(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTCUSDT", svc.gotSymbol)

	var resp struct {
		Symbol string              `json:"symbol"`
		Quotes []domain.VenueQuote `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTCUSDT", resp.Symbol)
	assert.Len(t, resp.Quotes, 2)
}

func TestPricesNoData(t *testing.T) {
	svc := &stubScanService{pricesErr: domain.ErrNoData}
	h := NewScanHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/prices/NOPEUSDT", nil)
	req.SetPathValue("symbol", "NOPEUSDT")
	rec := httptest.NewRecorder()
	h.Prices(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPricesMissingSymbol(t *testing.T) {
	h := NewScanHandler(&stubScanService{}, testLogger())

	rec := httptest.NewRecorder()
	h.Prices(rec, httptest.NewRequest(http.MethodGet, "/api/prices/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze(t *testing.T) {
	svc := &stubScanService{
		analyze: service.AnalyzeResult{
			Symbol:         "BTCUSDT",
			SpreadPercent:  0.8,
			NetProfit:      17.46,
			Recommendation: domain.RecommendExecute,
		},
	}
	h := NewScanHandler(svc, testLogger())

	body := `{"symbol":"BTCUSDT","buy_venue":"binance","sell_venue":"kraken","buy_price":50000,"sell_price":50400,"volume":0.1}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result service.AnalyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.RecommendExecute, result.Recommendation)
	assert.Equal(t, 17.46, result.NetProfit)
}

func TestAnalyzeBadBody(t *testing.T) {
	h := NewScanHandler(&stubScanService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeInvalidQuote(t *testing.T) {
	svc := &stubScanService{analyzeErr: domain.ErrInvalidQuote}
	h := NewScanHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"buy_price":-1}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "positive")
}

func TestStatus(t *testing.T) {
	lastScan := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := &stubScanService{
		status: domain.EngineStatus{
			Venues: map[string]domain.VenueStatus{
				"binance": {Enabled: true, Configured: true},
			},
			SupportedSymbols: []string{"BTCUSDT"},
			Mode:             "server",
		},
		state:    scanner.StateIdle,
		lastScan: lastScan,
	}
	h := NewScanHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mode       string     `json:"mode"`
		ScanState  string     `json:"scan_state"`
		LastScanAt *time.Time `json:"last_scan_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "server", resp.Mode)
	assert.Equal(t, "idle", resp.ScanState)
	require.NotNil(t, resp.LastScanAt)
	assert.True(t, resp.LastScanAt.Equal(lastScan))
}

func TestStatusOmitsZeroLastScan(t *testing.T) {
	h := NewScanHandler(&stubScanService{state: scanner.StateIdle}, testLogger())

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "last_scan_at")
}

func TestRecentClampsLimit(t *testing.T) {
	svc := &stubScanService{}
	h := NewScanHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/recent?limit=9999&symbol=ETHUSDT", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, svc.gotLimit)
	assert.Equal(t, "ETHUSDT", svc.gotSymbol)

	// Nil slice is rendered as an empty JSON array, not null.
	assert.Contains(t, rec.Body.String(), `"opportunities":[]`)
}
