package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alphayield/arbscan/internal/domain"
)

// fundingMaxLen bounds the retained funding observations per contract.
const fundingMaxLen = 512

// FundingHistory implements domain.FundingHistory using a Redis list per
// (venue, symbol), newest first, trimmed to a fixed length.
type FundingHistory struct {
	rdb *redis.Client
}

// NewFundingHistory creates a FundingHistory backed by the given Client.
func NewFundingHistory(c *Client) *FundingHistory {
	return &FundingHistory{rdb: c.rdb}
}

func fundingKey(venue, symbol string) string {
	return "funding:" + venue + ":" + symbol
}

// Append prepends a funding observation and trims the list.
func (fh *FundingHistory) Append(ctx context.Context, quote domain.FundingQuote) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("redis: marshal funding %s:%s: %w", quote.Venue, quote.Symbol, err)
	}

	key := fundingKey(quote.Venue, quote.Symbol)
	pipe := fh.rdb.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, fundingMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append funding %s: %w", key, err)
	}
	return nil
}

// Recent returns up to limit funding observations, newest first.
func (fh *FundingHistory) Recent(ctx context.Context, venue, symbol string, limit int) ([]domain.FundingQuote, error) {
	if limit <= 0 {
		limit = fundingMaxLen
	}

	key := fundingKey(venue, symbol)
	raw, err := fh.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: funding history %s: %w", key, err)
	}

	quotes := make([]domain.FundingQuote, 0, len(raw))
	for _, item := range raw {
		var quote domain.FundingQuote
		if err := json.Unmarshal([]byte(item), &quote); err != nil {
			return nil, fmt.Errorf("redis: unmarshal funding %s: %w", key, err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// Compile-time interface check.
var _ domain.FundingHistory = (*FundingHistory)(nil)
