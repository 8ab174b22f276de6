package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/alphayield/arbscan/internal/domain"
)

// BasisHistory implements domain.BasisHistory using a Redis list per
// (symbol, spot venue, perp venue) pair, trimmed to a fixed window. The
// z-score is computed over the window on read; windows are small (<=96 by
// default) so the list round-trip stays cheap.
type BasisHistory struct {
	rdb    *redis.Client
	window int
}

// NewBasisHistory creates a BasisHistory with the given rolling window size.
func NewBasisHistory(c *Client, window int) *BasisHistory {
	if window < 2 {
		window = 2
	}
	return &BasisHistory{rdb: c.rdb, window: window}
}

func basisKey(symbol, spotVenue, perpVenue string) string {
	return "basis:" + symbol + ":" + spotVenue + ":" + perpVenue
}

// Record prepends the observation and trims the list to the window.
func (bh *BasisHistory) Record(ctx context.Context, symbol, spotVenue, perpVenue string, basisBps float64) error {
	key := basisKey(symbol, spotVenue, perpVenue)
	pipe := bh.rdb.Pipeline()
	pipe.LPush(ctx, key, strconv.FormatFloat(basisBps, 'f', -1, 64))
	pipe.LTrim(ctx, key, 0, int64(bh.window-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: record basis %s: %w", key, err)
	}
	return nil
}

// ZScore reports how many standard deviations basisBps sits from the window
// mean. A window with fewer than two observations, or zero variance, yields 0.
func (bh *BasisHistory) ZScore(ctx context.Context, symbol, spotVenue, perpVenue string, basisBps float64) (float64, error) {
	key := basisKey(symbol, spotVenue, perpVenue)
	raw, err := bh.rdb.LRange(ctx, key, 0, int64(bh.window-1)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: basis window %s: %w", key, err)
	}
	if len(raw) < 2 {
		return 0, nil
	}

	values := make([]float64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("redis: parse basis %s: %w", key, err)
		}
		values = append(values, v)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	if variance == 0 {
		return 0, nil
	}
	return (basisBps - mean) / math.Sqrt(variance), nil
}

var _ domain.BasisHistory = (*BasisHistory)(nil)
