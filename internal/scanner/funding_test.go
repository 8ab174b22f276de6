package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphayield/arbscan/internal/domain"
)

func newTestAnalyzer() *FundingAnalyzer {
	return NewFundingAnalyzer(FundingConfig{
		EventsPerDay: 3,
		MinBasisBps:  10,
		MinAPY:       1,
	}, testLogger())
}

func basisQuote(t *testing.T, basisBps, zScore float64) domain.BasisQuote {
	t.Helper()
	spot, err := domain.NewVenueQuote("binance", "BTCUSDT", 49990, 50010, time.Now().UTC())
	require.NoError(t, err)

	// Shift the perp mid to produce the requested basis.
	offset := basisBps / 10_000 * spot.Mid()
	perp, err := domain.NewVenueQuote("binance", "BTCUSDT", spot.Bid+offset, spot.Ask+offset, time.Now().UTC())
	require.NoError(t, err)

	bq := domain.NewBasisQuote(spot, perp, zScore)
	require.InDelta(t, basisBps, bq.BasisBps, 1e-6)
	return bq
}

func fundingMap(rate float64) map[domain.QuoteKey]domain.FundingQuote {
	return map[domain.QuoteKey]domain.FundingQuote{
		{Venue: "binance", Symbol: "BTCUSDT"}: {
			Venue:       "binance",
			Symbol:      "BTCUSDT",
			FundingRate: rate,
			FundingTime: time.Now().UTC().Add(4 * time.Hour),
		},
	}
}

func TestFundingAnalyzerAnnualization(t *testing.T) {
	a := newTestAnalyzer()

	opps := a.Analyze([]domain.BasisQuote{basisQuote(t, 12, 0)}, fundingMap(0.0001))
	require.Len(t, opps, 1)

	// 0.0001 * 3 * 365 = 0.1095, i.e. 10.95% APY.
	assert.InDelta(t, 0.1095, opps[0].FundingRateAnnualized, 1e-9)
	assert.InDelta(t, 10.95, opps[0].EstimatedAPY, 1e-9)
}

func TestFundingAnalyzerDirection(t *testing.T) {
	a := newTestAnalyzer()

	t.Run("positive basis collects long spot short perp", func(t *testing.T) {
		opps := a.Analyze([]domain.BasisQuote{basisQuote(t, 15, 0)}, fundingMap(0.0001))
		require.Len(t, opps, 1)
		assert.Equal(t, domain.DirectionLongSpotShortPerp, opps[0].Direction)
	})

	t.Run("negative basis collects short spot long perp", func(t *testing.T) {
		opps := a.Analyze([]domain.BasisQuote{basisQuote(t, -15, 0)}, fundingMap(-0.0001))
		require.Len(t, opps, 1)
		assert.Equal(t, domain.DirectionShortSpotLongPerp, opps[0].Direction)
	})
}

func TestFundingAnalyzerActionability(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		name       string
		basisBps   float64
		rate       float64
		actionable bool
	}{
		{"both above threshold", 12, 0.0001, true},
		{"basis exactly at threshold", 10, 0.0001, true},
		{"basis below threshold", 9.9, 0.0001, false},
		{"apy below threshold", 12, 0.000002, false}, // 0.219% APY
		{"negative basis and rate still actionable", -12, -0.0001, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opps := a.Analyze([]domain.BasisQuote{basisQuote(t, tt.basisBps, 0)}, fundingMap(tt.rate))
			require.Len(t, opps, 1)
			assert.Equal(t, tt.actionable, opps[0].IsActionable)
		})
	}
}

func TestFundingAnalyzerMissingFundingDefaultsToZero(t *testing.T) {
	a := newTestAnalyzer()

	opps := a.Analyze([]domain.BasisQuote{basisQuote(t, 20, 0)}, nil)
	require.Len(t, opps, 1)

	assert.Zero(t, opps[0].FundingRate)
	assert.Zero(t, opps[0].EstimatedAPY)
	// Zero APY fails the APY threshold even though the basis clears its own.
	assert.False(t, opps[0].IsActionable)
}

func TestFundingAnalyzerRiskTier(t *testing.T) {
	a := newTestAnalyzer()

	opps := a.Analyze([]domain.BasisQuote{
		basisQuote(t, 12, 0.5),
		basisQuote(t, 12, 1.2),
		basisQuote(t, 12, -2.5),
	}, fundingMap(0.0001))
	require.Len(t, opps, 3)

	assert.Equal(t, domain.RiskLow, opps[0].RiskLevel)
	assert.Equal(t, domain.RiskMedium, opps[1].RiskLevel)
	assert.Equal(t, domain.RiskHigh, opps[2].RiskLevel)
}
