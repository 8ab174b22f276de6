package scanner

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alphayield/arbscan/internal/domain"
)

// maxConfidence caps the spread-derived confidence heuristic.
const maxConfidence = 0.95

// SpreadConfig configures the spot spread scanner.
type SpreadConfig struct {
	// Volumes maps symbols to a conservative per-asset sizing constant.
	// Sizing from visible order-book depth is a known future refinement.
	Volumes       map[string]float64
	DefaultVolume float64
}

// SpotScanner enumerates ordered venue pairs per symbol and emits raw spread
// candidates. Costs are not applied here; the cost model runs downstream.
type SpotScanner struct {
	cfg    SpreadConfig
	logger *slog.Logger
}

// NewSpotScanner creates a SpotScanner.
func NewSpotScanner(cfg SpreadConfig, logger *slog.Logger) *SpotScanner {
	return &SpotScanner{cfg: cfg, logger: logger.With(slog.String("component", "spot_scanner"))}
}

// Scan compares every ordered (buy, sell) venue pair with a matching symbol
// and returns candidates where the sell-side bid exceeds the buy-side ask by
// at least minSpreadPercent. Venue counts are small (<=10), so the quadratic
// pass per symbol is fine.
func (s *SpotScanner) Scan(quotes []domain.VenueQuote, minSpreadPercent float64) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity

	for i := range quotes {
		for j := range quotes {
			if i == j {
				continue
			}
			buy, sell := quotes[i], quotes[j]
			if buy.Symbol != sell.Symbol || buy.Venue == sell.Venue {
				continue
			}

			buyPrice := buy.Ask
			sellPrice := sell.Bid
			if sellPrice <= buyPrice {
				continue
			}

			spread := sellPrice - buyPrice
			spreadPercent := spread / buyPrice * 100
			if spreadPercent < minSpreadPercent {
				continue
			}

			volume := s.volumeFor(buy.Symbol)
			confidence := 0.5 + spreadPercent/2
			if confidence > maxConfidence {
				confidence = maxConfidence
			}

			opp := domain.ArbitrageOpportunity{
				ID:              uuid.Must(uuid.NewRandom()).String(),
				Symbol:          buy.Symbol,
				BuyVenue:        buy.Venue,
				SellVenue:       sell.Venue,
				BuyPrice:        buyPrice,
				SellPrice:       sellPrice,
				Spread:          spread,
				SpreadPercent:   spreadPercent,
				EstimatedVolume: volume,
				EstimatedProfit: spread * volume,
				Confidence:      confidence,
				Timestamp:       time.Now().UTC(),
			}
			opps = append(opps, opp)

			s.logger.Debug("spread candidate",
				slog.String("symbol", opp.Symbol),
				slog.String("buy_venue", opp.BuyVenue),
				slog.String("sell_venue", opp.SellVenue),
				slog.Float64("spread_percent", spreadPercent),
			)
		}
	}
	return opps
}

func (s *SpotScanner) volumeFor(symbol string) float64 {
	if v, ok := s.cfg.Volumes[symbol]; ok {
		return v
	}
	return s.cfg.DefaultVolume
}
