package scanner

import (
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/alphayield/arbscan/internal/domain"
)

// FundingConfig configures the funding-basis analyzer. EventsPerDay encodes
// the funding interval assumption (3 events/day for the standard 8h cycle);
// it is a fixed configured assumption, not derived from venue data.
type FundingConfig struct {
	EventsPerDay int
	MinBasisBps  float64
	MinAPY       float64
}

// FundingAnalyzer computes annualized funding yield, risk tier, and
// actionability for spot/perpetual basis pairs.
type FundingAnalyzer struct {
	cfg    FundingConfig
	logger *slog.Logger
}

// NewFundingAnalyzer creates a FundingAnalyzer.
func NewFundingAnalyzer(cfg FundingConfig, logger *slog.Logger) *FundingAnalyzer {
	return &FundingAnalyzer{cfg: cfg, logger: logger.With(slog.String("component", "funding_analyzer"))}
}

// Analyze produces one FundingOpportunity per basis quote. The most recent
// funding quote is looked up per (derivative venue, symbol); when none exists
// the rate defaults to 0 rather than failing the cycle. The explicit map
// lookup keeps "no funding data" distinct from "funding rate is exactly 0".
func (a *FundingAnalyzer) Analyze(basisQuotes []domain.BasisQuote, funding map[domain.QuoteKey]domain.FundingQuote) []domain.FundingOpportunity {
	opps := make([]domain.FundingOpportunity, 0, len(basisQuotes))

	for _, bq := range basisQuotes {
		fq, ok := funding[domain.QuoteKey{Venue: bq.DerivVenue, Symbol: bq.Symbol}]
		if !ok {
			a.logger.Debug("no funding quote, assuming zero rate",
				slog.String("venue", bq.DerivVenue),
				slog.String("symbol", bq.Symbol),
			)
		}

		annualized := fq.FundingRate * float64(a.cfg.EventsPerDay) * 365
		apy := annualized * 100

		direction := domain.DirectionLongSpotShortPerp
		if bq.BasisBps < 0 {
			direction = domain.DirectionShortSpotLongPerp
		}

		opp := domain.FundingOpportunity{
			ID:                    uuid.Must(uuid.NewRandom()).String(),
			Symbol:                bq.Symbol,
			SpotVenue:             bq.SpotVenue,
			PerpVenue:             bq.DerivVenue,
			SpotPrice:             (bq.SpotBid + bq.SpotAsk) / 2,
			PerpPrice:             (bq.PerpBid + bq.PerpAsk) / 2,
			FundingRate:           fq.FundingRate,
			FundingRateAnnualized: annualized,
			NextFundingTime:       fq.FundingTime,
			Direction:             direction,
			EstimatedAPY:          apy,
			RiskLevel:             domain.RiskLevelFromZScore(bq.BasisZScore),
			NetSpread:             bq.BasisBps,
			IsActionable:          math.Abs(bq.BasisBps) >= a.cfg.MinBasisBps && math.Abs(apy) >= a.cfg.MinAPY,
			Timestamp:             bq.Timestamp,
		}
		opps = append(opps, opp)
	}
	return opps
}
