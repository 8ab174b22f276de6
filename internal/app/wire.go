package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alphayield/arbscan/internal/blob/s3"
	"github.com/alphayield/arbscan/internal/cache/redis"
	"github.com/alphayield/arbscan/internal/config"
	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/notify"
	"github.com/alphayield/arbscan/internal/scanner"
	"github.com/alphayield/arbscan/internal/store/postgres"
	"github.com/alphayield/arbscan/internal/venue"
	"github.com/alphayield/arbscan/internal/venue/binance"
	"github.com/alphayield/arbscan/internal/venue/bybit"
	"github.com/alphayield/arbscan/internal/venue/kraken"
	"github.com/alphayield/arbscan/internal/venue/okx"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Venue clients
	Clients map[string]venue.Client
	Derivs  map[string]venue.DerivativesClient

	// Stores
	OpportunityStore domain.OpportunityStore
	FundingStore     domain.FundingOpportunityStore

	// Caches
	QuoteCache     domain.QuoteCache
	BasisHistory   domain.BasisHistory
	FundingHistory domain.FundingHistory
	ScanLock       domain.ScanLock
	SignalBus      domain.SignalBus

	// Blob storage
	Archiver *s3blob.Archiver

	// Detection pipeline
	Orchestrator *scanner.Orchestrator
	CostModel    *scanner.CostModel

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require a database connection.
func needsPostgres(mode string) bool {
	switch mode {
	case "server", "monitor":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Clients: make(map[string]venue.Client),
		Derivs:  make(map[string]venue.DerivativesClient),
	}

	// --- Venue clients ---
	for name, vc := range cfg.Venues {
		if !vc.Enabled {
			continue
		}
		var client venue.Client
		switch strings.ToLower(name) {
		case "binance":
			client = binance.New(vc.BaseURL, vc.FuturesURL, vc.RateLimitPerSec)
		case "bybit":
			client = bybit.New(vc.BaseURL, vc.RateLimitPerSec)
		case "kraken":
			client = kraken.New(vc.BaseURL, vc.RateLimitPerSec)
		case "okx":
			client = okx.New(vc.BaseURL, vc.RateLimitPerSec)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: unknown venue %q", name)
		}
		deps.Clients[name] = client
		if deriv, ok := client.(venue.DerivativesClient); ok {
			deps.Derivs[name] = deriv
		}
	}

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.OpportunityStore = postgres.NewOpportunityStore(pool)
		deps.FundingStore = postgres.NewFundingStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)
	deps.BasisHistory = redis.NewBasisHistory(redisClient, cfg.Funding.HistoryWindow)
	deps.FundingHistory = redis.NewFundingHistory(redisClient)
	deps.ScanLock = redis.NewScanLock(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Detection pipeline ---
	clients := make([]venue.Client, 0, len(deps.Clients))
	for _, c := range deps.Clients {
		clients = append(clients, c)
	}

	agg := scanner.NewAggregator(clients, deps.QuoteCache, scanner.AggregatorConfig{
		PerCallTimeout: cfg.Scan.PerCallTimeout.Duration,
		Grace:          cfg.Scan.Grace.Duration,
		MaxConcurrent:  cfg.Scan.MaxConcurrent,
	}, logger)

	spot := scanner.NewSpotScanner(scanner.SpreadConfig{
		Volumes:       cfg.Costs.Volumes,
		DefaultVolume: cfg.Costs.DefaultVolume,
	}, logger)

	deps.CostModel = scanner.NewCostModel(scanner.CostConfig{
		FeeRate:              cfg.Costs.FeeRate,
		SlippageRate:         cfg.Costs.SlippageRate,
		WithdrawalFees:       cfg.Costs.WithdrawalFees,
		DefaultWithdrawalFee: cfg.Costs.DefaultWithdrawalFee,
		ExecutionThreshold:   cfg.Costs.ExecutionThreshold,
	})

	funding := scanner.NewFundingAnalyzer(scanner.FundingConfig{
		EventsPerDay: cfg.Funding.EventsPerDay,
		MinBasisBps:  cfg.Funding.MinBasisBps,
		MinAPY:       cfg.Funding.MinAPY,
	}, logger)

	deps.Orchestrator = scanner.NewOrchestrator(
		agg, spot, deps.CostModel, funding,
		deps.BasisHistory, deps.OpportunityStore, deps.FundingStore,
		deps.SignalBus, deps.ScanLock, deps.Notifier,
		scanner.OrchestratorConfig{
			Symbols:          cfg.Symbols,
			MinSpreadPercent: cfg.Scan.MinSpreadPercent,
			Interval:         cfg.Scan.Interval.Duration,
			ConflictPolicy:   cfg.Scan.ConflictPolicy,
		},
		logger,
	)

	// --- S3 archiver (only when enabled and persistence exists) ---
	if cfg.Archive.Enabled && deps.OpportunityStore != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, deps.OpportunityStore, logger)
	}

	return deps, cleanup, nil
}
