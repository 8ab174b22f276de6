package domain

import (
	"context"
	"time"
)

// QuoteCache holds the latest quote per (venue, symbol) so the prices
// endpoint and the live feed can serve reads between scan cycles.
type QuoteCache interface {
	SetQuote(ctx context.Context, quote VenueQuote) error
	GetQuote(ctx context.Context, venue, symbol string) (VenueQuote, error)
	GetQuotes(ctx context.Context, symbol string, venues []string) ([]VenueQuote, error)
}

// BasisHistory is the rolling-window collaborator that supplies basis
// z-scores. Record appends an observation; ZScore reports how many standard
// deviations the given basis sits from the window's mean. A window with fewer
// than two observations, or zero variance, yields a z-score of 0.
type BasisHistory interface {
	Record(ctx context.Context, symbol, spotVenue, perpVenue string, basisBps float64) error
	ZScore(ctx context.Context, symbol, spotVenue, perpVenue string, basisBps float64) (float64, error)
}

// FundingHistory retains recent funding-rate observations per (venue, symbol).
type FundingHistory interface {
	Append(ctx context.Context, quote FundingQuote) error
	Recent(ctx context.Context, venue, symbol string, limit int) ([]FundingQuote, error)
}

// ScanLock prevents overlapping interval scans across processes.
type ScanLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus publishes scan events for downstream consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
