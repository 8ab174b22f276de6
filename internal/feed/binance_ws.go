// Package feed streams live best-bid/ask updates into the quote cache so
// price reads between scan cycles stay fresh without polling.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphayield/arbscan/internal/domain"
)

// reconnectDelay is the pause between websocket reconnect attempts.
const reconnectDelay = 2 * time.Second

// bookTickerMessage is one combined-stream frame from the Binance
// bookTicker stream.
type bookTickerMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		BidPx  string `json:"b"`
		BidQty string `json:"B"`
		AskPx  string `json:"a"`
		AskQty string `json:"A"`
	} `json:"data"`
}

// BinanceWSFeed subscribes to the Binance combined bookTicker stream for the
// configured symbols and writes each update into the quote cache. It
// reconnects with a fixed delay on disconnect.
type BinanceWSFeed struct {
	wsURL     string
	symbols   []string
	cache     domain.QuoteCache
	bus       domain.SignalBus // optional; quote updates are republished
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewBinanceWSFeed creates a feed for the given symbols. wsURL is the
// combined-stream base, e.g. "wss://stream.binance.com:9443/stream".
func NewBinanceWSFeed(wsURL string, symbols []string, cache domain.QuoteCache, bus domain.SignalBus, logger *slog.Logger) *BinanceWSFeed {
	return &BinanceWSFeed{
		wsURL:   wsURL,
		symbols: symbols,
		cache:   cache,
		bus:     bus,
		logger:  logger.With(slog.String("component", "binance_ws_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects and consumes updates until ctx is cancelled or Close is
// called. Reconnects with a fixed delay on disconnect.
func (f *BinanceWSFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to stream, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("binance ws disconnected, reconnecting", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *BinanceWSFeed) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("feed: dial binance ws: %w", err)
	}
	defer conn.Close()

	f.logger.Info("binance ws connected", slog.Int("symbols", len(f.symbols)))

	// Unblock ReadMessage when the context is torn down.
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		}
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read binance ws: %w", err)
		}
		f.handleMessage(ctx, raw)
	}
}

func (f *BinanceWSFeed) handleMessage(ctx context.Context, raw []byte) {
	var msg bookTickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Debug("unparseable ws frame", slog.Int("payload_len", len(raw)))
		return
	}
	if msg.Data.Symbol == "" {
		return
	}

	bid, err1 := strconv.ParseFloat(msg.Data.BidPx, 64)
	ask, err2 := strconv.ParseFloat(msg.Data.AskPx, 64)
	if err1 != nil || err2 != nil {
		return
	}

	quote, err := domain.NewVenueQuote("binance", msg.Data.Symbol, bid, ask, time.Now().UTC())
	if err != nil {
		f.logger.Debug("ws quote rejected",
			slog.String("symbol", msg.Data.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := f.cache.SetQuote(ctx, quote); err != nil {
		f.logger.Debug("ws cache write failed",
			slog.String("symbol", quote.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	if f.bus != nil {
		if payload, err := json.Marshal(quote); err == nil {
			_ = f.bus.Publish(ctx, "arbscan:quotes", payload)
		}
	}
}

// streamURL builds the combined-stream URL for the configured symbols.
func (f *BinanceWSFeed) streamURL() string {
	streams := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		streams = append(streams, strings.ToLower(s)+"@bookTicker")
	}
	return f.wsURL + "?streams=" + strings.Join(streams, "/")
}

// Close stops the feed.
func (f *BinanceWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
