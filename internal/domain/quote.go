// Package domain defines the value objects, sentinel errors, and collaborator
// interfaces shared across the arbitrage scanner. All entities here are
// immutable after construction; constructors enforce the invariants so that
// downstream components never see a malformed quote.
package domain

import (
	"fmt"
	"time"
)

// QuoteKey identifies one quote within a scan cycle.
type QuoteKey struct {
	Venue  string
	Symbol string
}

func (k QuoteKey) String() string {
	return k.Venue + ":" + k.Symbol
}

// VenueQuote is a normalized best-bid/ask snapshot from a single venue.
// A quote is only valid when both sides are present and Bid <= Ask; use
// NewVenueQuote to construct one.
type VenueQuote struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
}

// NewVenueQuote validates and constructs a VenueQuote. Quotes missing either
// side, or with a crossed book (bid > ask), are rejected with ErrInvalidQuote.
func NewVenueQuote(venue, symbol string, bid, ask float64, ts time.Time) (VenueQuote, error) {
	if bid <= 0 || ask <= 0 {
		return VenueQuote{}, fmt.Errorf("%w: %s %s missing side (bid=%v ask=%v)", ErrInvalidQuote, venue, symbol, bid, ask)
	}
	if bid > ask {
		return VenueQuote{}, fmt.Errorf("%w: %s %s crossed book (bid=%v > ask=%v)", ErrInvalidQuote, venue, symbol, bid, ask)
	}
	return VenueQuote{Venue: venue, Symbol: symbol, Bid: bid, Ask: ask, Timestamp: ts}, nil
}

// Mid returns the mid price.
func (q VenueQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Key returns the quote's identity within a snapshot.
func (q VenueQuote) Key() QuoteKey {
	return QuoteKey{Venue: q.Venue, Symbol: q.Symbol}
}

// FundingQuote is the most recent funding-rate observation for a perpetual
// contract on one venue. FundingRate is the per-event rate (e.g. 0.0001 for
// one 8-hour interval), not annualized.
type FundingQuote struct {
	Venue       string    `json:"venue"`
	Symbol      string    `json:"symbol"`
	FundingRate float64   `json:"funding_rate"`
	FundingTime time.Time `json:"funding_time"`
}

// BasisQuote pairs a spot quote with its perpetual counterpart and carries the
// spot/perp basis in bps. BasisZScore is the current basis expressed in
// standard deviations from its rolling mean; it is supplied by the basis
// history collaborator, not recomputed by the analyzer.
type BasisQuote struct {
	Symbol      string    `json:"symbol"`
	SpotVenue   string    `json:"spot_venue"`
	DerivVenue  string    `json:"deriv_venue"`
	SpotBid     float64   `json:"spot_bid"`
	SpotAsk     float64   `json:"spot_ask"`
	PerpBid     float64   `json:"perp_bid"`
	PerpAsk     float64   `json:"perp_ask"`
	BasisBps    float64   `json:"basis_bps"`
	BasisZScore float64   `json:"basis_z_score"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewBasisQuote derives a BasisQuote from a spot and a perpetual quote for the
// same symbol. basis_bps = (midPerp - midSpot) / midSpot * 10,000.
func NewBasisQuote(spot, perp VenueQuote, zScore float64) BasisQuote {
	midSpot := spot.Mid()
	midPerp := perp.Mid()
	var basisBps float64
	if midSpot > 0 {
		basisBps = (midPerp - midSpot) / midSpot * 10_000
	}
	ts := spot.Timestamp
	if perp.Timestamp.After(ts) {
		ts = perp.Timestamp
	}
	return BasisQuote{
		Symbol:      spot.Symbol,
		SpotVenue:   spot.Venue,
		DerivVenue:  perp.Venue,
		SpotBid:     spot.Bid,
		SpotAsk:     spot.Ask,
		PerpBid:     perp.Bid,
		PerpAsk:     perp.Ask,
		BasisBps:    basisBps,
		BasisZScore: zScore,
		Timestamp:   ts,
	}
}
