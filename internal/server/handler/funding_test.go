package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/service"
)

// stubFundingService implements FundingService with canned responses.
type stubFundingService struct {
	view       service.FundingView
	viewErr    error
	history    []domain.FundingQuote
	historyErr error

	gotVenue  string
	gotSymbol string
	gotLimit  int
}

func (s *stubFundingService) Opportunities(ctx context.Context, symbol string, limit int) (service.FundingView, error) {
	s.gotSymbol = symbol
	s.gotLimit = limit
	return s.view, s.viewErr
}

func (s *stubFundingService) History(ctx context.Context, venue, symbol string, limit int) ([]domain.FundingQuote, error) {
	s.gotVenue = venue
	s.gotSymbol = symbol
	s.gotLimit = limit
	return s.history, s.historyErr
}

func TestFundingOpportunities(t *testing.T) {
	svc := &stubFundingService{
		view: service.FundingView{
			Opportunities: []domain.FundingOpportunity{
				{Symbol: "BTCUSDT", EstimatedAPY: 10.95, IsActionable: true},
			},
			ActionableCount: 1,
			Total:           1,
		},
	}
	h := NewFundingHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Opportunities(rec, httptest.NewRequest(http.MethodGet, "/api/funding/opportunities?symbol=BTCUSDT", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTCUSDT", svc.gotSymbol)

	var view service.FundingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1, view.ActionableCount)
	require.Len(t, view.Opportunities, 1)
	assert.Equal(t, 10.95, view.Opportunities[0].EstimatedAPY)
}

func TestFundingOpportunitiesServiceError(t *testing.T) {
	svc := &stubFundingService{viewErr: errors.New("redis down")}
	h := NewFundingHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Opportunities(rec, httptest.NewRequest(http.MethodGet, "/api/funding/opportunities", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFundingHistory(t *testing.T) {
	svc := &stubFundingService{
		history: []domain.FundingQuote{
			{Venue: "binance", Symbol: "BTCUSDT", FundingRate: 0.0001, FundingTime: time.Now().UTC()},
		},
	}
	h := NewFundingHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/funding/history/BTCUSDT?venue=okx&limit=10", nil)
	req.SetPathValue("symbol", "BTCUSDT")
	rec := httptest.NewRecorder()
	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "okx", svc.gotVenue)
	assert.Equal(t, 10, svc.gotLimit)

	var resp struct {
		Venue   string                `json:"venue"`
		Symbol  string                `json:"symbol"`
		History []domain.FundingQuote `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "okx", resp.Venue)
	assert.Len(t, resp.History, 1)
}

func TestFundingHistoryDefaultsVenue(t *testing.T) {
	svc := &stubFundingService{}
	h := NewFundingHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/funding/history/BTCUSDT", nil)
	req.SetPathValue("symbol", "BTCUSDT")
	rec := httptest.NewRecorder()
	h.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "binance", svc.gotVenue)
	assert.Contains(t, rec.Body.String(), `"history":[]`)
}

func TestFundingHistoryUnknownVenue(t *testing.T) {
	svc := &stubFundingService{historyErr: domain.ErrNotFound}
	h := NewFundingHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/funding/history/BTCUSDT?venue=kraken", nil)
	req.SetPathValue("symbol", "BTCUSDT")
	rec := httptest.NewRecorder()
	h.History(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFundingHistoryUpstreamFailure(t *testing.T) {
	svc := &stubFundingService{historyErr: errors.New("venue timeout")}
	h := NewFundingHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/funding/history/BTCUSDT", nil)
	req.SetPathValue("symbol", "BTCUSDT")
	rec := httptest.NewRecorder()
	h.History(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
