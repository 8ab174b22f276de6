package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alphayield/arbscan/internal/feed"
	"github.com/alphayield/arbscan/internal/scanner"
	"github.com/alphayield/arbscan/internal/server"
	"github.com/alphayield/arbscan/internal/server/handler"
	"github.com/alphayield/arbscan/internal/service"
)

// ServerMode runs the HTTP API with on-demand scans, plus the interval
// scanner, websocket feed, and archiver when enabled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	scanSvc, fundingSvc := a.buildServices(deps)

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.cfg.Mode, len(deps.Clients)),
		Scan:    handler.NewScanHandler(scanSvc, a.logger),
		Funding: handler.NewFundingHandler(fundingSvc, a.logger),
	}, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Background interval scanning keeps the cache and history warm even
	// when no client triggers scans.
	if a.cfg.Scan.Interval.Duration > 0 {
		g.Go(func() error {
			return ignoreCancel(deps.Orchestrator.RunInterval(ctx))
		})
	}

	a.startFeed(ctx, g, deps)
	a.startArchiver(ctx, g, deps)

	return ignoreCancel(g.Wait())
}

// ScanMode runs a single scan cycle, prints the result as JSON to stdout, and
// exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	result, err := deps.Orchestrator.Scan(ctx, scanner.ScanRequest{})
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("app: encode result: %w", err)
	}

	a.logger.InfoContext(ctx, "scan complete",
		slog.Int("found", result.Found),
		slog.Int("failures", result.Failures),
	)
	return nil
}

// MonitorMode runs interval scanning with persistence and notifications but
// no HTTP API.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCancel(deps.Orchestrator.RunInterval(ctx))
	})

	a.startFeed(ctx, g, deps)
	a.startArchiver(ctx, g, deps)

	return ignoreCancel(g.Wait())
}

// buildServices constructs the service layer shared by the HTTP handlers.
func (a *App) buildServices(deps *Dependencies) (*service.ScanService, *service.FundingService) {
	scanSvc := service.NewScanService(
		deps.Orchestrator,
		deps.CostModel,
		deps.QuoteCache,
		deps.OpportunityStore,
		deps.Clients,
		a.cfg.Symbols,
		a.cfg.Costs.Volume,
		a.cfg.Mode,
		a.logger,
	)
	fundingSvc := service.NewFundingService(
		deps.Orchestrator,
		deps.FundingStore,
		deps.FundingHistory,
		deps.Derivs,
		a.logger,
	)
	return scanSvc, fundingSvc
}

// startFeed launches the live quote feed when enabled.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Feed.Enabled {
		return
	}
	wsFeed := feed.NewBinanceWSFeed(a.cfg.Feed.WsURL, a.cfg.Symbols, deps.QuoteCache, deps.SignalBus, a.logger)
	g.Go(func() error {
		defer wsFeed.Close()
		return ignoreCancel(wsFeed.Run(ctx))
	})
}

// startArchiver launches the retention archiver when configured.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	interval := a.cfg.Archive.Interval.Duration
	g.Go(func() error {
		return ignoreCancel(deps.Archiver.Run(ctx, interval, retention))
	})
}

// ignoreCancel maps context cancellation to a clean nil so graceful shutdown
// does not surface as an error.
func ignoreCancel(err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}
