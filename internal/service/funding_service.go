package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/scanner"
	"github.com/alphayield/arbscan/internal/venue"
)

// FundingView is the funding opportunities response: the ranked list plus a
// count of the actionable subset.
type FundingView struct {
	Opportunities   []domain.FundingOpportunity `json:"opportunities"`
	ActionableCount int                         `json:"actionable_count"`
	Total           int                         `json:"total"`
}

// FundingService serves funding-basis opportunity and history reads.
type FundingService struct {
	orch    *scanner.Orchestrator
	store   domain.FundingOpportunityStore // optional
	history domain.FundingHistory          // optional
	derivs  map[string]venue.DerivativesClient
	logger  *slog.Logger
}

// NewFundingService creates a FundingService. derivs maps venue names to
// clients that can serve funding history live when the cache is cold.
func NewFundingService(
	orch *scanner.Orchestrator,
	store domain.FundingOpportunityStore,
	history domain.FundingHistory,
	derivs map[string]venue.DerivativesClient,
	logger *slog.Logger,
) *FundingService {
	return &FundingService{
		orch:    orch,
		store:   store,
		history: history,
		derivs:  derivs,
		logger:  logger.With(slog.String("component", "funding_service")),
	}
}

// Opportunities returns the funding opportunities from the most recent scan
// cycle, falling back to the persisted history when no cycle has run yet in
// this process.
func (s *FundingService) Opportunities(ctx context.Context, symbol string, limit int) (FundingView, error) {
	opps := s.orch.LastFunding()

	if len(opps) == 0 && s.store != nil {
		stored, err := s.store.ListRecent(ctx, symbol, limit)
		if err != nil {
			return FundingView{}, fmt.Errorf("funding_service: list recent: %w", err)
		}
		opps = stored
	}

	if symbol != "" {
		filtered := opps[:0:0]
		for _, opp := range opps {
			if opp.Symbol == symbol {
				filtered = append(filtered, opp)
			}
		}
		opps = filtered
	}
	if limit > 0 && len(opps) > limit {
		opps = opps[:limit]
	}
	if opps == nil {
		opps = []domain.FundingOpportunity{}
	}

	actionable := 0
	for _, opp := range opps {
		if opp.IsActionable {
			actionable++
		}
	}

	return FundingView{
		Opportunities:   opps,
		ActionableCount: actionable,
		Total:           len(opps),
	}, nil
}

// History returns recent funding-rate observations for one contract, reading
// the cache first and falling back to the venue's history endpoint.
func (s *FundingService) History(ctx context.Context, venueName, symbol string, limit int) ([]domain.FundingQuote, error) {
	if s.history != nil {
		quotes, err := s.history.Recent(ctx, venueName, symbol, limit)
		if err != nil {
			s.logger.Debug("funding history cache read failed",
				slog.String("venue", venueName),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		} else if len(quotes) > 0 {
			return quotes, nil
		}
	}

	client, ok := s.derivs[venueName]
	if !ok {
		return nil, fmt.Errorf("funding_service: history %s:%s: %w", venueName, symbol, domain.ErrNotFound)
	}

	quotes, err := client.FetchFundingHistory(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("funding_service: history %s:%s: %w", venueName, symbol, err)
	}

	if s.history != nil {
		// Warm the cache for the next read; oldest first so newest ends up
		// at the head of the list.
		for i := len(quotes) - 1; i >= 0; i-- {
			if err := s.history.Append(ctx, quotes[i]); err != nil {
				break
			}
		}
	}
	return quotes, nil
}
