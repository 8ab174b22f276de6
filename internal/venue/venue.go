// Package venue defines the client contract that every trading venue
// implements, plus shared error-classification helpers. Clients are thin: one
// network call per method, venue-specific symbol normalization in both
// directions, and no internal retries (retry policy belongs to the
// aggregator).
package venue

import (
	"context"
	"errors"
	"fmt"

	"github.com/alphayield/arbscan/internal/domain"
)

// Client fetches a normalized best-bid/ask snapshot for one symbol.
type Client interface {
	// Name returns the canonical venue identifier, e.g. "binance".
	Name() string
	// FetchQuote returns the spot best-bid/ask for the canonical symbol.
	// Errors wrap domain.ErrVenueUnavailable (network/timeout) or
	// domain.ErrBadResponse (malformed payload).
	FetchQuote(ctx context.Context, symbol string) (domain.VenueQuote, error)
}

// DerivativesClient extends Client for venues with perpetual markets.
type DerivativesClient interface {
	Client
	// FetchPerpQuote returns the perpetual best-bid/ask for the symbol.
	FetchPerpQuote(ctx context.Context, symbol string) (domain.VenueQuote, error)
	// FetchFunding returns the most recent funding-rate observation.
	FetchFunding(ctx context.Context, symbol string) (domain.FundingQuote, error)
	// FetchFundingHistory returns up to limit recent funding observations,
	// newest first.
	FetchFundingHistory(ctx context.Context, symbol string, limit int) ([]domain.FundingQuote, error)
}

// Unavailable wraps a transport-level failure so callers can classify it with
// errors.Is(err, domain.ErrVenueUnavailable).
func Unavailable(name, op string, err error) error {
	return fmt.Errorf("%s: %s: %w", name, op, errors.Join(domain.ErrVenueUnavailable, err))
}

// BadResponse wraps a malformed-payload failure so callers can classify it
// with errors.Is(err, domain.ErrBadResponse).
func BadResponse(name, op string, err error) error {
	return fmt.Errorf("%s: %s: %w", name, op, errors.Join(domain.ErrBadResponse, err))
}

// Badf is BadResponse for failures without an underlying error.
func Badf(name, op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %s: %w", name, op, fmt.Sprintf(format, args...), domain.ErrBadResponse)
}
