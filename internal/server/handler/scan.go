package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/scanner"
	"github.com/alphayield/arbscan/internal/service"
)

// ScanService defines the methods the scan handler requires.
type ScanService interface {
	Scan(ctx context.Context, req scanner.ScanRequest) (domain.ScanResult, error)
	Prices(ctx context.Context, symbol string) ([]domain.VenueQuote, error)
	Analyze(ctx context.Context, req service.AnalyzeRequest) (service.AnalyzeResult, error)
	Status(ctx context.Context) (domain.EngineStatus, scanner.ScanState, time.Time)
	Recent(ctx context.Context, symbol string, limit int) ([]domain.ArbitrageOpportunity, error)
}

// ScanHandler serves the scan, prices, analyze, and status endpoints.
type ScanHandler struct {
	svc    ScanService
	logger *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(svc ScanService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{svc: svc, logger: logger}
}

// scanRequest is the optional POST /api/scan body. Omitted fields fall back
// to the configured symbols and threshold.
type scanRequest struct {
	Symbols          []string `json:"symbols"`
	MinSpreadPercent float64  `json:"min_spread_percent"`
}

// Scan triggers one scan cycle and returns its result.
// POST /api/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MinSpreadPercent < 0 {
		writeError(w, http.StatusBadRequest, "min_spread_percent must not be negative")
		return
	}

	result, err := h.svc.Scan(r.Context(), scanner.ScanRequest{
		Symbols:          body.Symbols,
		MinSpreadPercent: body.MinSpreadPercent,
	})
	if err != nil {
		if errors.Is(err, domain.ErrScanInProgress) {
			writeError(w, http.StatusConflict, "scan already in progress")
			return
		}
		if errors.Is(err, domain.ErrScanCancelled) {
			writeError(w, http.StatusRequestTimeout, "scan cancelled")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: scan failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// pricesResponse wraps the per-venue quotes for one symbol.
type pricesResponse struct {
	Symbol string              `json:"symbol"`
	Quotes []domain.VenueQuote `json:"quotes"`
}

// Prices returns the latest quotes for one symbol across enabled venues.
// GET /api/prices/{symbol}
func (h *ScanHandler) Prices(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	quotes, err := h.svc.Prices(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			writeError(w, http.StatusNotFound, "no quotes available for symbol")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: prices failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}
	writeJSON(w, http.StatusOK, pricesResponse{Symbol: symbol, Quotes: quotes})
}

// Analyze evaluates a caller-supplied candidate trade with the cost model.
// POST /api/analyze
func (h *ScanHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuote) {
			writeError(w, http.StatusBadRequest, "buy and sell prices must be positive")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: analyze failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "analyze failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusResponse augments the engine status with the scan state.
type statusResponse struct {
	domain.EngineStatus
	ScanState  scanner.ScanState `json:"scan_state"`
	LastScanAt *time.Time        `json:"last_scan_at,omitempty"`
}

// Status reports enabled venues, supported symbols, mode, and last scan.
// GET /api/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, state, lastScan := h.svc.Status(r.Context())

	resp := statusResponse{EngineStatus: status, ScanState: state}
	if !lastScan.IsZero() {
		resp.LastScanAt = &lastScan
	}
	writeJSON(w, http.StatusOK, resp)
}

// listOppsResponse wraps the recent opportunities response.
type listOppsResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
}

// Recent returns the most recent persisted opportunities.
// GET /api/opportunities/recent?symbol=BTCUSDT&limit=20
func (h *ScanHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 200)
	symbol := r.URL.Query().Get("symbol")

	opps, err := h.svc.Recent(r.Context(), symbol, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listOppsResponse{Opportunities: opps})
}
