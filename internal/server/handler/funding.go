package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/service"
)

// FundingService defines the methods the funding handler requires.
type FundingService interface {
	Opportunities(ctx context.Context, symbol string, limit int) (service.FundingView, error)
	History(ctx context.Context, venue, symbol string, limit int) ([]domain.FundingQuote, error)
}

// FundingHandler serves the funding opportunity and history endpoints.
type FundingHandler struct {
	svc    FundingService
	logger *slog.Logger
}

// NewFundingHandler creates a FundingHandler.
func NewFundingHandler(svc FundingService, logger *slog.Logger) *FundingHandler {
	return &FundingHandler{svc: svc, logger: logger}
}

// Opportunities returns the funding opportunities from the latest cycle.
// GET /api/funding/opportunities?symbol=BTCUSDT&limit=20
func (h *FundingHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 200)
	symbol := r.URL.Query().Get("symbol")

	view, err := h.svc.Opportunities(r.Context(), symbol, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: funding opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list funding opportunities")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// historyResponse wraps one contract's funding history.
type historyResponse struct {
	Venue   string                `json:"venue"`
	Symbol  string                `json:"symbol"`
	History []domain.FundingQuote `json:"history"`
}

// History returns recent funding-rate observations for one contract.
// GET /api/funding/history/{symbol}?venue=binance&limit=50
func (h *FundingHandler) History(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	venue := r.URL.Query().Get("venue")
	if venue == "" {
		venue = "binance"
	}
	limit := queryLimit(r, 50, 500)

	history, err := h.svc.History(r.Context(), venue, symbol, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "venue has no funding data")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: funding history failed",
			slog.String("venue", venue),
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch funding history")
		return
	}
	if history == nil {
		history = []domain.FundingQuote{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Venue: venue, Symbol: symbol, History: history})
}
