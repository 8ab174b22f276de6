// Package scanner contains the detection engine: concurrent quote
// aggregation, spot spread scanning, the execution cost model, funding-basis
// analysis, opportunity ranking, and the orchestrator that drives one scan
// cycle end to end.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/venue"
)

// Snapshot is the consistent view of the market produced by one collection
// phase. Quotes are immutable once collected; all downstream computation in
// the cycle reads this one snapshot.
type Snapshot struct {
	Quotes    map[domain.QuoteKey]domain.VenueQuote   // spot best-bid/ask
	Perps     map[domain.QuoteKey]domain.VenueQuote   // perpetual best-bid/ask
	Funding   map[domain.QuoteKey]domain.FundingQuote // latest funding per (venue, symbol)
	Attempted int                                     // spot fetches issued
	Failures  int                                     // fetches dropped (all kinds)
}

// SpotQuotes returns the spot quotes for one symbol.
func (s Snapshot) SpotQuotes(symbol string) []domain.VenueQuote {
	var quotes []domain.VenueQuote
	for key, q := range s.Quotes {
		if key.Symbol == symbol {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// AggregatorConfig holds the fan-out parameters.
type AggregatorConfig struct {
	PerCallTimeout time.Duration
	Grace          time.Duration
	MaxConcurrent  int
}

// Aggregator fans venue clients out across (venue, symbol) pairs and merges
// the results. A failed or timed-out call is dropped and counted, never
// fatal: one slow venue must not block detection on the others.
type Aggregator struct {
	clients []venue.Client
	cache   domain.QuoteCache // optional; warmed with successful quotes
	cfg     AggregatorConfig
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator over the given venue clients. cache may
// be nil.
func NewAggregator(clients []venue.Client, cache domain.QuoteCache, cfg AggregatorConfig, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		clients: clients,
		cache:   cache,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "aggregator")),
	}
}

// Collect issues one call per (venue, symbol) pair concurrently, bounded by
// MaxConcurrent tasks and a per-call timeout, and returns whatever subset
// succeeded. Derivative venues are additionally asked for perp quotes and the
// latest funding rate so the whole cycle sees one consistent snapshot.
//
// Collect returns ctx.Err() when the caller's context is cancelled, and
// domain.ErrNoData when every spot fetch failed; either way the partial
// snapshot is returned for observability.
func (a *Aggregator) Collect(ctx context.Context, symbols []string) (Snapshot, error) {
	snap := Snapshot{
		Quotes:  make(map[domain.QuoteKey]domain.VenueQuote),
		Perps:   make(map[domain.QuoteKey]domain.VenueQuote),
		Funding: make(map[domain.QuoteKey]domain.FundingQuote),
	}

	// Bound the whole collection phase: all tasks finish or time out within
	// the per-call timeout plus a small grace for scheduling.
	collectCtx, cancel := context.WithTimeout(ctx, a.cfg.PerCallTimeout+a.cfg.Grace)
	defer cancel()

	g, gctx := errgroup.WithContext(collectCtx)
	g.SetLimit(a.cfg.MaxConcurrent)

	// The snapshot maps are the only shared state; all writes go through mu.
	var mu sync.Mutex

	record := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	for _, client := range a.clients {
		for _, symbol := range symbols {
			client, symbol := client, symbol
			snap.Attempted++

			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gctx, a.cfg.PerCallTimeout)
				defer cancel()

				quote, err := client.FetchQuote(callCtx, symbol)
				if err != nil {
					a.logger.Warn("spot quote dropped",
						slog.String("venue", client.Name()),
						slog.String("symbol", symbol),
						slog.String("error", err.Error()),
					)
					record(func() { snap.Failures++ })
					return nil
				}
				record(func() { snap.Quotes[quote.Key()] = quote })
				a.warmCache(gctx, quote)
				return nil
			})

			deriv, ok := client.(venue.DerivativesClient)
			if !ok {
				continue
			}

			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gctx, a.cfg.PerCallTimeout)
				defer cancel()

				perp, err := deriv.FetchPerpQuote(callCtx, symbol)
				if err != nil {
					a.logger.Warn("perp quote dropped",
						slog.String("venue", client.Name()),
						slog.String("symbol", symbol),
						slog.String("error", err.Error()),
					)
					record(func() { snap.Failures++ })
					return nil
				}
				record(func() { snap.Perps[perp.Key()] = perp })
				return nil
			})

			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(gctx, a.cfg.PerCallTimeout)
				defer cancel()

				funding, err := deriv.FetchFunding(callCtx, symbol)
				if err != nil {
					// Missing funding is not fatal to the basis analysis; the
					// analyzer falls back to a zero rate for this venue.
					a.logger.Warn("funding quote dropped",
						slog.String("venue", client.Name()),
						slog.String("symbol", symbol),
						slog.String("error", err.Error()),
					)
					record(func() { snap.Failures++ })
					return nil
				}
				record(func() {
					snap.Funding[domain.QuoteKey{Venue: funding.Venue, Symbol: funding.Symbol}] = funding
				})
				return nil
			})
		}
	}

	// Tasks absorb their own errors, so Wait only fails on context teardown.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return snap, err
	}

	if len(snap.Quotes) == 0 {
		return snap, domain.ErrNoData
	}
	return snap, nil
}

func (a *Aggregator) warmCache(ctx context.Context, quote domain.VenueQuote) {
	if a.cache == nil {
		return
	}
	if err := a.cache.SetQuote(ctx, quote); err != nil {
		a.logger.Debug("quote cache write failed",
			slog.String("venue", quote.Venue),
			slog.String("symbol", quote.Symbol),
			slog.String("error", err.Error()),
		)
	}
}
