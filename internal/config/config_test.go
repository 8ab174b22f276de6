package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, 0.1, cfg.Scan.MinSpreadPercent)
	assert.Equal(t, 3*time.Second, cfg.Scan.PerCallTimeout.Duration)
	assert.Equal(t, "reject", cfg.Scan.ConflictPolicy)
	assert.Equal(t, 0.001, cfg.Costs.FeeRate)
	assert.Equal(t, 0.0005, cfg.Costs.SlippageRate)
	assert.Equal(t, 10.0, cfg.Costs.DefaultWithdrawalFee)
	assert.Equal(t, 3, cfg.Funding.EventsPerDay)
	assert.Len(t, cfg.Venues, 4)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Symbols = nil
	cfg.Scan.MinSpreadPercent = 0
	cfg.Scan.ConflictPolicy = "maybe"
	cfg.Funding.EventsPerDay = 0

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "at least one symbol")
	assert.Contains(t, msg, "min_spread_percent")
	assert.Contains(t, msg, "conflict_policy")
	assert.Contains(t, msg, "events_per_day")
}

func TestValidateRequiresTwoVenues(t *testing.T) {
	cfg := Defaults()
	for name, v := range cfg.Venues {
		if name != "binance" {
			v.Enabled = false
			cfg.Venues[name] = v
		}
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two venues")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbols = ["SOLUSDT"]
mode = "monitor"

[scan]
min_spread_percent = 0.25
per_call_timeout = "5s"
conflict_policy = "queue"

[costs]
fee_rate = 0.002
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SOLUSDT"}, cfg.Symbols)
	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 0.25, cfg.Scan.MinSpreadPercent)
	assert.Equal(t, 5*time.Second, cfg.Scan.PerCallTimeout.Duration)
	assert.Equal(t, "queue", cfg.Scan.ConflictPolicy)
	assert.Equal(t, 0.002, cfg.Costs.FeeRate)

	// Untouched fields keep their defaults.
	assert.Equal(t, 0.0005, cfg.Costs.SlippageRate)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARBSCAN_SCAN_MIN_SPREAD_PERCENT", "0.5")
	t.Setenv("ARBSCAN_SCAN_INTERVAL", "90s")
	t.Setenv("ARBSCAN_SYMBOLS", "BTCUSDT, SOLUSDT")
	t.Setenv("ARBSCAN_VENUE_BINANCE_API_KEY", "sekrit")
	t.Setenv("ARBSCAN_REDIS_ADDR", "redis:6379")
	t.Setenv("ARBSCAN_MODE", "scan")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 0.5, cfg.Scan.MinSpreadPercent)
	assert.Equal(t, 90*time.Second, cfg.Scan.Interval.Duration)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, cfg.Symbols)
	assert.Equal(t, "sekrit", cfg.Venues["binance"].ApiKey)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "scan", cfg.Mode)
}

func TestCostConfigLookups(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 0.1, cfg.Costs.Volume("BTCUSDT"))
	assert.Equal(t, 1.0, cfg.Costs.Volume("ETHUSDT"))
	assert.Equal(t, cfg.Costs.DefaultVolume, cfg.Costs.Volume("DOGEUSDT"))

	assert.Equal(t, cfg.Costs.DefaultWithdrawalFee, cfg.Costs.WithdrawalFee("BTCUSDT"))
}
