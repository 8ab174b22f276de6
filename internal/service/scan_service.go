// Package service exposes the engine's use cases to the HTTP layer: running
// scans, reading prices, analyzing candidate trades, and serving funding
// opportunity views.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/scanner"
	"github.com/alphayield/arbscan/internal/venue"
)

// AnalyzeRequest is a caller-supplied candidate trade to evaluate with the
// cost model.
type AnalyzeRequest struct {
	Symbol    string  `json:"symbol"`
	BuyVenue  string  `json:"buy_venue"`
	SellVenue string  `json:"sell_venue"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Volume    float64 `json:"volume"`
}

// AnalyzeResult is the cost-model verdict for an AnalyzeRequest.
type AnalyzeResult struct {
	Symbol          string                `json:"symbol"`
	SpreadPercent   float64               `json:"spread_percent"`
	EstimatedProfit float64               `json:"estimated_profit"`
	Costs           domain.CostBreakdown  `json:"costs"`
	NetProfit       float64               `json:"net_profit"`
	Recommendation  domain.Recommendation `json:"recommendation"`
}

// ScanService drives scans and serves price and status reads.
type ScanService struct {
	orch    *scanner.Orchestrator
	costs   *scanner.CostModel
	cache   domain.QuoteCache       // optional
	store   domain.OpportunityStore // optional
	clients map[string]venue.Client
	symbols []string
	volume  func(symbol string) float64
	mode    string
	logger  *slog.Logger
}

// NewScanService creates a ScanService. volume maps a symbol to its sizing
// constant for ad-hoc analysis.
func NewScanService(
	orch *scanner.Orchestrator,
	costs *scanner.CostModel,
	cache domain.QuoteCache,
	store domain.OpportunityStore,
	clients map[string]venue.Client,
	symbols []string,
	volume func(symbol string) float64,
	mode string,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		orch:    orch,
		costs:   costs,
		cache:   cache,
		store:   store,
		clients: clients,
		symbols: symbols,
		volume:  volume,
		mode:    mode,
		logger:  logger.With(slog.String("component", "scan_service")),
	}
}

// Scan runs one scan cycle on demand. The request may narrow the cycle to a
// symbol subset or override the spread threshold.
func (s *ScanService) Scan(ctx context.Context, req scanner.ScanRequest) (domain.ScanResult, error) {
	return s.orch.Scan(ctx, req)
}

// Prices returns the latest quotes for a symbol across all enabled venues.
// Cached quotes are used when present; venues without a cached quote are
// fetched live so the endpoint works before the first scan cycle.
func (s *ScanService) Prices(ctx context.Context, symbol string) ([]domain.VenueQuote, error) {
	cached := s.cachedQuotes(ctx, symbol)

	have := make(map[string]bool, len(cached))
	for _, q := range cached {
		have[q.Venue] = true
	}

	quotes := cached
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, client := range s.clients {
		if have[name] {
			continue
		}
		client := client
		g.Go(func() error {
			quote, err := client.FetchQuote(gctx, symbol)
			if err != nil {
				s.logger.Debug("live price fetch failed",
					slog.String("venue", client.Name()),
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			quotes = append(quotes, quote)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(quotes) == 0 {
		return nil, fmt.Errorf("scan_service: prices %s: %w", symbol, domain.ErrNoData)
	}
	return quotes, nil
}

func (s *ScanService) cachedQuotes(ctx context.Context, symbol string) []domain.VenueQuote {
	if s.cache == nil {
		return nil
	}
	venues := make([]string, 0, len(s.clients))
	for name := range s.clients {
		venues = append(venues, name)
	}
	quotes, err := s.cache.GetQuotes(ctx, symbol, venues)
	if err != nil {
		s.logger.Debug("quote cache read failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return quotes
}

// Analyze evaluates a caller-supplied candidate with the cost model and
// returns the breakdown and an EXECUTE/SKIP recommendation.
func (s *ScanService) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	if req.BuyPrice <= 0 || req.SellPrice <= 0 {
		return AnalyzeResult{}, fmt.Errorf("scan_service: analyze: %w: prices must be positive", domain.ErrInvalidQuote)
	}

	volume := req.Volume
	if volume <= 0 {
		volume = s.volume(req.Symbol)
	}

	spread := req.SellPrice - req.BuyPrice
	candidate := domain.ArbitrageOpportunity{
		Symbol:          req.Symbol,
		BuyVenue:        req.BuyVenue,
		SellVenue:       req.SellVenue,
		BuyPrice:        req.BuyPrice,
		SellPrice:       req.SellPrice,
		Spread:          spread,
		SpreadPercent:   spread / req.BuyPrice * 100,
		EstimatedVolume: volume,
		EstimatedProfit: spread * volume,
		Timestamp:       time.Now().UTC(),
	}
	priced := s.costs.Apply(candidate)

	return AnalyzeResult{
		Symbol:          priced.Symbol,
		SpreadPercent:   priced.SpreadPercent,
		EstimatedProfit: priced.EstimatedProfit,
		Costs:           priced.Costs,
		NetProfit:       priced.NetProfit,
		Recommendation:  s.costs.Recommend(priced.NetProfit),
	}, nil
}

// Status reports the engine's venues, symbols, mode, and last scan.
func (s *ScanService) Status(ctx context.Context) (domain.EngineStatus, scanner.ScanState, time.Time) {
	venues := make(map[string]domain.VenueStatus, len(s.clients))
	for name := range s.clients {
		venues[name] = domain.VenueStatus{Enabled: true, Configured: true}
	}

	state, _, lastScan := s.orch.State()
	return domain.EngineStatus{
		Venues:           venues,
		SupportedSymbols: s.symbols,
		Mode:             s.mode,
	}, state, lastScan
}

// Recent returns persisted opportunities, newest first. Without a store the
// in-memory last result is served instead.
func (s *ScanService) Recent(ctx context.Context, symbol string, limit int) ([]domain.ArbitrageOpportunity, error) {
	if s.store == nil {
		_, last, _ := s.orch.State()
		if last == nil {
			return []domain.ArbitrageOpportunity{}, nil
		}
		return last.Opportunities, nil
	}

	opps, err := s.store.ListRecent(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("scan_service: list recent: %w", err)
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	return opps, nil
}

// IsScanConflict reports whether err is the busy-scan rejection.
func IsScanConflict(err error) bool {
	return errors.Is(err, domain.ErrScanInProgress)
}
