// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Symbols  []string              `toml:"symbols"`
	Venues   map[string]VenueConfig `toml:"venues"`
	Scan     ScanConfig            `toml:"scan"`
	Costs    CostConfig            `toml:"costs"`
	Funding  FundingConfig         `toml:"funding"`
	Postgres PostgresConfig        `toml:"postgres"`
	Redis    RedisConfig           `toml:"redis"`
	S3       S3Config              `toml:"s3"`
	Archive  ArchiveConfig         `toml:"archive"`
	Feed     FeedConfig            `toml:"feed"`
	Server   ServerConfig          `toml:"server"`
	Notify   NotifyConfig          `toml:"notify"`
	Mode     string                `toml:"mode"`
	LogLevel string                `toml:"log_level"`
}

// VenueConfig holds one venue's endpoints and credentials. ApiKey is optional
// for venues whose public ticker endpoints are unauthenticated.
type VenueConfig struct {
	Enabled         bool    `toml:"enabled"`
	BaseURL         string  `toml:"base_url"`
	FuturesURL      string  `toml:"futures_url"`
	ApiKey          string  `toml:"api_key"`
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
}

// ScanConfig holds the scan-cycle parameters.
type ScanConfig struct {
	MinSpreadPercent float64  `toml:"min_spread_percent"`
	PerCallTimeout   duration `toml:"per_call_timeout"`
	Grace            duration `toml:"grace"`
	Interval         duration `toml:"interval"`
	MaxConcurrent    int      `toml:"max_concurrent"`
	// ConflictPolicy decides what happens when a scan request arrives while
	// another scan is running: "reject" fails fast with ErrScanInProgress,
	// "queue" serializes the request behind the running cycle.
	ConflictPolicy string `toml:"conflict_policy"`
}

// CostConfig holds the execution cost model parameters.
type CostConfig struct {
	FeeRate              float64            `toml:"fee_rate"`
	SlippageRate         float64            `toml:"slippage_rate"`
	DefaultWithdrawalFee float64            `toml:"default_withdrawal_fee"`
	WithdrawalFees       map[string]float64 `toml:"withdrawal_fees"`
	DefaultVolume        float64            `toml:"default_volume"`
	Volumes              map[string]float64 `toml:"volumes"`
	ExecutionThreshold   float64            `toml:"execution_threshold"`
}

// WithdrawalFee returns the flat withdrawal fee for a symbol.
func (c CostConfig) WithdrawalFee(symbol string) float64 {
	if fee, ok := c.WithdrawalFees[symbol]; ok {
		return fee
	}
	return c.DefaultWithdrawalFee
}

// Volume returns the conservative per-asset sizing constant for a symbol.
// Depth-derived sizing is a known future refinement; these are fixed caps.
func (c CostConfig) Volume(symbol string) float64 {
	if v, ok := c.Volumes[symbol]; ok {
		return v
	}
	return c.DefaultVolume
}

// FundingConfig holds the funding-basis analyzer parameters.
type FundingConfig struct {
	// EventsPerDay is the funding-annualization multiplier numerator:
	// annualized = rate * events_per_day * 365. The default of 3 encodes the
	// standard 8-hour funding interval.
	EventsPerDay  int     `toml:"events_per_day"`
	MinBasisBps   float64 `toml:"min_basis_bps"`
	MinAPY        float64 `toml:"min_apy"`
	HistoryWindow int     `toml:"history_window"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	QuoteTTL   duration `toml:"quote_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls archival of aged opportunity rows to object storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// FeedConfig controls the optional live quote websocket feed.
type FeedConfig struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "3s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "3s" or "1m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Symbols: []string{"BTCUSDT", "ETHUSDT"},
		Venues: map[string]VenueConfig{
			"binance": {
				Enabled:         true,
				BaseURL:         "https://api.binance.com",
				FuturesURL:      "https://fapi.binance.com",
				RateLimitPerSec: 10,
			},
			"bybit": {
				Enabled:         true,
				BaseURL:         "https://api.bybit.com",
				RateLimitPerSec: 10,
			},
			"kraken": {
				Enabled:         true,
				BaseURL:         "https://api.kraken.com",
				RateLimitPerSec: 1,
			},
			"okx": {
				Enabled:         true,
				BaseURL:         "https://www.okx.com",
				RateLimitPerSec: 5,
			},
		},
		Scan: ScanConfig{
			MinSpreadPercent: 0.1,
			PerCallTimeout:   duration{3 * time.Second},
			Grace:            duration{500 * time.Millisecond},
			Interval:         duration{30 * time.Second},
			MaxConcurrent:    8,
			ConflictPolicy:   "reject",
		},
		Costs: CostConfig{
			FeeRate:              0.001,
			SlippageRate:         0.0005,
			DefaultWithdrawalFee: 10.0,
			WithdrawalFees:       map[string]float64{},
			DefaultVolume:        0.1,
			Volumes: map[string]float64{
				"BTCUSDT": 0.1,
				"ETHUSDT": 1.0,
			},
			ExecutionThreshold: 5.0,
		},
		Funding: FundingConfig{
			EventsPerDay:  3,
			MinBasisBps:   10,
			MinAPY:        1,
			HistoryWindow: 96,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			QuoteTTL:   duration{2 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbscan-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Feed: FeedConfig{
			Enabled: false,
			WsURL:   "wss://stream.binance.com:9443/stream",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_found", "funding_actionable", "scan_failed"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"scan":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validConflictPolicies enumerates the accepted scan conflict policies.
var validConflictPolicies = map[string]bool{
	"reject": true,
	"queue":  true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. Missing required thresholds
// are fatal here rather than silently defaulted at the point of use.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, scan, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Symbols and venues.
	if len(c.Symbols) == 0 {
		errs = append(errs, "symbols: at least one symbol is required")
	}
	enabled := 0
	for name, v := range c.Venues {
		if !v.Enabled {
			continue
		}
		enabled++
		if v.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("venues.%s: base_url must not be empty when enabled", name))
		}
		if v.RateLimitPerSec <= 0 {
			errs = append(errs, fmt.Sprintf("venues.%s: rate_limit_per_sec must be > 0", name))
		}
	}
	if enabled < 2 {
		errs = append(errs, "venues: at least two venues must be enabled for cross-venue scanning")
	}

	// Scan.
	if c.Scan.MinSpreadPercent <= 0 {
		errs = append(errs, "scan: min_spread_percent must be > 0")
	}
	if c.Scan.PerCallTimeout.Duration <= 0 {
		errs = append(errs, "scan: per_call_timeout must be > 0")
	}
	if c.Scan.Grace.Duration < 0 {
		errs = append(errs, "scan: grace must be >= 0")
	}
	if c.Scan.MaxConcurrent < 1 {
		errs = append(errs, "scan: max_concurrent must be >= 1")
	}
	if !validConflictPolicies[strings.ToLower(c.Scan.ConflictPolicy)] {
		errs = append(errs, fmt.Sprintf("scan: unknown conflict_policy %q (valid: reject, queue)", c.Scan.ConflictPolicy))
	}

	// Costs.
	if c.Costs.FeeRate < 0 {
		errs = append(errs, "costs: fee_rate must be >= 0")
	}
	if c.Costs.SlippageRate < 0 {
		errs = append(errs, "costs: slippage_rate must be >= 0")
	}
	if c.Costs.DefaultVolume <= 0 {
		errs = append(errs, "costs: default_volume must be > 0")
	}
	if c.Costs.ExecutionThreshold <= 0 {
		errs = append(errs, "costs: execution_threshold must be > 0")
	}

	// Funding.
	if c.Funding.EventsPerDay <= 0 {
		errs = append(errs, "funding: events_per_day must be > 0")
	}
	if c.Funding.MinBasisBps <= 0 {
		errs = append(errs, "funding: min_basis_bps must be > 0")
	}
	if c.Funding.MinAPY <= 0 {
		errs = append(errs, "funding: min_apy must be > 0")
	}
	if c.Funding.HistoryWindow < 2 {
		errs = append(errs, "funding: history_window must be >= 2")
	}

	// Postgres.
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Feed.
	if c.Feed.Enabled && c.Feed.WsURL == "" {
		errs = append(errs, "feed: ws_url must not be empty when enabled")
	}

	// Server.
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
