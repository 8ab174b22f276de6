package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/venue"
)

// fakeClient is a spot-only venue client with a scripted response.
type fakeClient struct {
	name  string
	bid   float64
	ask   float64
	err   error
	delay time.Duration
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) FetchQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.VenueQuote{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return domain.VenueQuote{}, f.err
	}
	return domain.NewVenueQuote(f.name, symbol, f.bid, f.ask, time.Now().UTC())
}

// fakeDerivClient adds perp and funding responses.
type fakeDerivClient struct {
	fakeClient
	perpBid float64
	perpAsk float64
	rate    float64
}

func (f *fakeDerivClient) FetchPerpQuote(ctx context.Context, symbol string) (domain.VenueQuote, error) {
	return domain.NewVenueQuote(f.name, symbol, f.perpBid, f.perpAsk, time.Now().UTC())
}

func (f *fakeDerivClient) FetchFunding(ctx context.Context, symbol string) (domain.FundingQuote, error) {
	return domain.FundingQuote{
		Venue:       f.name,
		Symbol:      symbol,
		FundingRate: f.rate,
		FundingTime: time.Now().UTC().Add(4 * time.Hour),
	}, nil
}

func (f *fakeDerivClient) FetchFundingHistory(ctx context.Context, symbol string, limit int) ([]domain.FundingQuote, error) {
	fq, _ := f.FetchFunding(ctx, symbol)
	return []domain.FundingQuote{fq}, nil
}

var _ venue.Client = (*fakeClient)(nil)
var _ venue.DerivativesClient = (*fakeDerivClient)(nil)

func testAggConfig() AggregatorConfig {
	return AggregatorConfig{
		PerCallTimeout: 100 * time.Millisecond,
		Grace:          50 * time.Millisecond,
		MaxConcurrent:  8,
	}
}

func TestAggregatorCollect(t *testing.T) {
	clients := []venue.Client{
		&fakeClient{name: "binance", bid: 49990, ask: 50000},
		&fakeClient{name: "kraken", bid: 50090, ask: 50100},
	}
	agg := NewAggregator(clients, nil, testAggConfig(), testLogger())

	snap, err := agg.Collect(context.Background(), []string{"BTCUSDT"})
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Attempted)
	assert.Zero(t, snap.Failures)
	assert.Len(t, snap.Quotes, 2)
	assert.Len(t, snap.SpotQuotes("BTCUSDT"), 2)
}

func TestAggregatorToleratesOneSlowVenue(t *testing.T) {
	clients := []venue.Client{
		&fakeClient{name: "binance", bid: 49990, ask: 50000},
		&fakeClient{name: "kraken", bid: 50090, ask: 50100},
		&fakeClient{name: "bybit", bid: 50190, ask: 50200, delay: time.Second},
	}
	agg := NewAggregator(clients, nil, testAggConfig(), testLogger())

	started := time.Now()
	snap, err := agg.Collect(context.Background(), []string{"BTCUSDT"})
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.Len(t, snap.Quotes, 2)
	assert.Equal(t, 1, snap.Failures)
	// The phase is bounded by the per-call timeout plus grace, not by the
	// slowest venue.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestAggregatorAllVenuesFail(t *testing.T) {
	clients := []venue.Client{
		&fakeClient{name: "binance", err: domain.ErrVenueUnavailable},
		&fakeClient{name: "kraken", err: domain.ErrVenueUnavailable},
	}
	agg := NewAggregator(clients, nil, testAggConfig(), testLogger())

	snap, err := agg.Collect(context.Background(), []string{"BTCUSDT"})
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.Equal(t, 2, snap.Attempted)
	assert.Equal(t, 2, snap.Failures)
}

func TestAggregatorCollectsPerpAndFunding(t *testing.T) {
	deriv := &fakeDerivClient{
		fakeClient: fakeClient{name: "binance", bid: 49990, ask: 50010},
		perpBid:    50040,
		perpAsk:    50060,
		rate:       0.0001,
	}
	clients := []venue.Client{deriv, &fakeClient{name: "kraken", bid: 50000, ask: 50020}}
	agg := NewAggregator(clients, nil, testAggConfig(), testLogger())

	snap, err := agg.Collect(context.Background(), []string{"BTCUSDT"})
	require.NoError(t, err)

	key := domain.QuoteKey{Venue: "binance", Symbol: "BTCUSDT"}
	assert.Contains(t, snap.Perps, key)
	require.Contains(t, snap.Funding, key)
	assert.Equal(t, 0.0001, snap.Funding[key].FundingRate)

	// Spot-only venues contribute no perp entries.
	assert.NotContains(t, snap.Perps, domain.QuoteKey{Venue: "kraken", Symbol: "BTCUSDT"})
}

func TestAggregatorCancelledContext(t *testing.T) {
	clients := []venue.Client{&fakeClient{name: "binance", bid: 49990, ask: 50000, delay: time.Second}}
	agg := NewAggregator(clients, nil, testAggConfig(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Collect(ctx, []string{"BTCUSDT"})
	require.ErrorIs(t, err, context.Canceled)
}
