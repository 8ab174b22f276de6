package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alphayield/arbscan/internal/domain"
)

// QuoteCache implements domain.QuoteCache. Each quote is stored as a JSON
// string at key "quote:{venue}:{symbol}" with a TTL so a venue that goes
// quiet ages out instead of serving stale prices forever.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. ttl <= 0
// disables expiry.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.rdb, ttl: ttl}
}

func quoteKey(venue, symbol string) string {
	return "quote:" + venue + ":" + symbol
}

// SetQuote stores the latest quote for a (venue, symbol) pair.
func (qc *QuoteCache) SetQuote(ctx context.Context, quote domain.VenueQuote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s:%s: %w", quote.Venue, quote.Symbol, err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(quote.Venue, quote.Symbol), payload, qc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s:%s: %w", quote.Venue, quote.Symbol, err)
	}
	return nil
}

// GetQuote retrieves the latest quote for a (venue, symbol) pair. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, venue, symbol string) (domain.VenueQuote, error) {
	raw, err := qc.rdb.Get(ctx, quoteKey(venue, symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.VenueQuote{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.VenueQuote{}, fmt.Errorf("redis: get quote %s:%s: %w", venue, symbol, err)
	}

	var quote domain.VenueQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return domain.VenueQuote{}, fmt.Errorf("redis: unmarshal quote %s:%s: %w", venue, symbol, err)
	}
	return quote, nil
}

// GetQuotes retrieves the latest quotes for one symbol across venues using a
// pipeline. Venues without a cached quote are silently omitted.
func (qc *QuoteCache) GetQuotes(ctx context.Context, symbol string, venues []string) ([]domain.VenueQuote, error) {
	if len(venues) == 0 {
		return []domain.VenueQuote{}, nil
	}

	pipe := qc.rdb.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(venues))
	for _, venue := range venues {
		cmds[venue] = pipe.Get(ctx, quoteKey(venue, symbol))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes pipeline: %w", err)
	}

	quotes := make([]domain.VenueQuote, 0, len(venues))
	for venue, cmd := range cmds {
		raw, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis: get quote %s:%s: %w", venue, symbol, err)
		}
		var quote domain.VenueQuote
		if err := json.Unmarshal(raw, &quote); err != nil {
			return nil, fmt.Errorf("redis: unmarshal quote %s:%s: %w", venue, symbol, err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
