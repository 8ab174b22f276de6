package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alphayield/arbscan/internal/domain"
	"github.com/alphayield/arbscan/internal/notify"
)

// ScanState reports where the orchestrator is within a cycle.
type ScanState string

const (
	StateIdle       ScanState = "idle"
	StateCollecting ScanState = "collecting"
	StateScanning   ScanState = "scanning"
	StateDone       ScanState = "done"
)

// Conflict policies for a scan request arriving while a cycle is running.
const (
	ConflictReject = "reject"
	ConflictQueue  = "queue"
)

// signalChannel is the bus channel scan results are published on.
const signalChannel = "arbscan:results"

// scanLockKey guards interval scans across processes.
const scanLockKey = "arbscan:scan"

// OrchestratorConfig holds the cycle-level parameters.
type OrchestratorConfig struct {
	Symbols          []string
	MinSpreadPercent float64
	Interval         time.Duration
	ConflictPolicy   string
}

// Orchestrator drives one scan cycle end to end: collect a snapshot, scan
// spot spreads, apply the cost model, build spot/perp basis pairs, analyze
// funding, rank, persist, and publish. Only one cycle runs at a time within a
// process; the conflict policy decides whether a concurrent request waits or
// is rejected.
type Orchestrator struct {
	agg       *Aggregator
	spot      *SpotScanner
	costs     *CostModel
	funding   *FundingAnalyzer
	history   domain.BasisHistory            // optional
	oppStore  domain.OpportunityStore        // optional
	fundStore domain.FundingOpportunityStore // optional
	bus       domain.SignalBus               // optional
	lock      domain.ScanLock                // optional; interval scans only
	notifier  *notify.Notifier               // optional
	cfg       OrchestratorConfig
	logger    *slog.Logger

	// run serializes cycles; mu guards the observable fields below.
	run sync.Mutex
	mu  sync.Mutex

	state       ScanState
	lastResult  *domain.ScanResult
	lastScanAt  time.Time
	lastFunding []domain.FundingOpportunity
}

// NewOrchestrator wires the cycle components together. history, stores, bus,
// lock, and notifier may be nil; the corresponding steps are skipped.
func NewOrchestrator(
	agg *Aggregator,
	spot *SpotScanner,
	costs *CostModel,
	funding *FundingAnalyzer,
	history domain.BasisHistory,
	oppStore domain.OpportunityStore,
	fundStore domain.FundingOpportunityStore,
	bus domain.SignalBus,
	lock domain.ScanLock,
	notifier *notify.Notifier,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.ConflictPolicy == "" {
		cfg.ConflictPolicy = ConflictReject
	}
	return &Orchestrator{
		agg:       agg,
		spot:      spot,
		costs:     costs,
		funding:   funding,
		history:   history,
		oppStore:  oppStore,
		fundStore: fundStore,
		bus:       bus,
		lock:      lock,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "orchestrator")),
		state:     StateIdle,
	}
}

// ScanRequest narrows one scan cycle to a symbol subset or a different
// spread threshold. Zero values fall back to the configured defaults.
type ScanRequest struct {
	Symbols          []string
	MinSpreadPercent float64
}

// Scan runs one full cycle and returns its result. When another cycle is
// already running the behavior follows the conflict policy: "reject" returns
// domain.ErrScanInProgress immediately, "queue" waits for the running cycle
// and then executes. A cancelled context returns domain.ErrScanCancelled and
// no partial result is retained.
func (o *Orchestrator) Scan(ctx context.Context, req ScanRequest) (domain.ScanResult, error) {
	switch o.cfg.ConflictPolicy {
	case ConflictQueue:
		o.run.Lock()
	default:
		if !o.run.TryLock() {
			return domain.ScanResult{}, domain.ErrScanInProgress
		}
	}
	defer o.run.Unlock()

	result, err := o.cycle(ctx, req)
	if err != nil {
		return domain.ScanResult{}, err
	}
	return result, nil
}

// cycle executes collection and detection under the run lock.
func (o *Orchestrator) cycle(ctx context.Context, req ScanRequest) (domain.ScanResult, error) {
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = o.cfg.Symbols
	}
	minSpread := req.MinSpreadPercent
	if minSpread <= 0 {
		minSpread = o.cfg.MinSpreadPercent
	}

	started := time.Now().UTC()
	o.setState(StateCollecting)
	defer o.setState(StateIdle)

	snap, err := o.agg.Collect(ctx, symbols)
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		o.logger.WarnContext(ctx, "scan cancelled during collection", slog.String("error", err.Error()))
		return domain.ScanResult{}, fmt.Errorf("orchestrator: collect: %w", domain.ErrScanCancelled)
	case errors.Is(err, domain.ErrNoData):
		// Every venue failed. The cycle completes with an empty result so
		// callers and the interval loop keep running; operators are alerted.
		o.logger.ErrorContext(ctx, "no quote data collected",
			slog.Int("attempted", snap.Attempted),
			slog.Int("failures", snap.Failures),
		)
		o.notify(ctx, notify.EventScanFailed, "Scan failed",
			fmt.Sprintf("All %d quote fetches failed; no data collected.", snap.Attempted))
		result := domain.ScanResult{
			Opportunities: []domain.ArbitrageOpportunity{},
			Funding:       []domain.FundingOpportunity{},
			Scanned:       snap.Attempted,
			Failures:      snap.Failures,
			Timestamp:     started,
		}
		o.retain(result)
		return result, nil
	case err != nil:
		return domain.ScanResult{}, fmt.Errorf("orchestrator: collect: %w", err)
	}

	o.setState(StateScanning)

	spotOpps := o.scanSpot(snap, symbols, minSpread)
	fundingOpps := o.scanFunding(ctx, snap)

	if err := ctx.Err(); err != nil {
		o.logger.WarnContext(ctx, "scan cancelled during detection", slog.String("error", err.Error()))
		return domain.ScanResult{}, fmt.Errorf("orchestrator: detect: %w", domain.ErrScanCancelled)
	}

	result := domain.ScanResult{
		Opportunities: spotOpps,
		Funding:       fundingOpps,
		Scanned:       snap.Attempted,
		Found:         len(spotOpps) + len(fundingOpps),
		Failures:      snap.Failures,
		Timestamp:     started,
	}

	o.persist(ctx, result)
	o.publish(ctx, result)
	o.alert(ctx, result)
	o.retain(result)

	o.setState(StateDone)
	o.logger.InfoContext(ctx, "scan cycle complete",
		slog.Int("scanned", result.Scanned),
		slog.Int("found", result.Found),
		slog.Int("failures", result.Failures),
		slog.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// scanSpot runs spread detection, the cost model, and ranking per symbol.
func (o *Orchestrator) scanSpot(snap Snapshot, symbols []string, minSpread float64) []domain.ArbitrageOpportunity {
	opps := make([]domain.ArbitrageOpportunity, 0)
	for _, symbol := range symbols {
		for _, raw := range o.spot.Scan(snap.SpotQuotes(symbol), minSpread) {
			opps = append(opps, o.costs.Apply(raw))
		}
	}
	return RankSpot(opps)
}

// scanFunding pairs each perp quote with its same-venue spot quote, records
// the basis and fetches its z-score, then analyzes and ranks.
func (o *Orchestrator) scanFunding(ctx context.Context, snap Snapshot) []domain.FundingOpportunity {
	basisQuotes := make([]domain.BasisQuote, 0, len(snap.Perps))
	for key, perp := range snap.Perps {
		spot, ok := snap.Quotes[key]
		if !ok {
			continue
		}
		bq := domain.NewBasisQuote(spot, perp, 0)
		bq.BasisZScore = o.zScore(ctx, bq)
		basisQuotes = append(basisQuotes, bq)
	}

	return RankFunding(o.funding.Analyze(basisQuotes, snap.Funding))
}

// zScore records the observation and returns its z-score from the rolling
// window. Without a history collaborator the z-score is 0, which tiers every
// opportunity as low risk.
func (o *Orchestrator) zScore(ctx context.Context, bq domain.BasisQuote) float64 {
	if o.history == nil {
		return 0
	}
	if err := o.history.Record(ctx, bq.Symbol, bq.SpotVenue, bq.DerivVenue, bq.BasisBps); err != nil {
		o.logger.Warn("basis history record failed",
			slog.String("symbol", bq.Symbol),
			slog.String("error", err.Error()),
		)
	}
	z, err := o.history.ZScore(ctx, bq.Symbol, bq.SpotVenue, bq.DerivVenue, bq.BasisBps)
	if err != nil {
		o.logger.Warn("basis z-score lookup failed",
			slog.String("symbol", bq.Symbol),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return z
}

func (o *Orchestrator) persist(ctx context.Context, result domain.ScanResult) {
	if o.oppStore != nil {
		for _, opp := range result.Opportunities {
			if err := o.oppStore.Insert(ctx, opp); err != nil {
				o.logger.Error("opportunity insert failed",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	if o.fundStore != nil {
		for _, opp := range result.Funding {
			if err := o.fundStore.Insert(ctx, opp); err != nil {
				o.logger.Error("funding opportunity insert failed",
					slog.String("id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func (o *Orchestrator) publish(ctx context.Context, result domain.ScanResult) {
	if o.bus == nil || result.Found == 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		o.logger.Error("result marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := o.bus.Publish(ctx, signalChannel, payload); err != nil {
		o.logger.Error("result publish failed", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) alert(ctx context.Context, result domain.ScanResult) {
	if len(result.Opportunities) > 0 {
		top := result.Opportunities[0]
		o.notify(ctx, notify.EventOpportunityFound, "Arbitrage opportunity",
			fmt.Sprintf("%s: buy %s @ %.2f, sell %s @ %.2f (net $%.2f)",
				top.Symbol, top.BuyVenue, top.BuyPrice, top.SellVenue, top.SellPrice, top.NetProfit))
	}
	for _, fo := range result.Funding {
		if !fo.IsActionable {
			continue
		}
		o.notify(ctx, notify.EventFundingActionable, "Funding basis actionable",
			fmt.Sprintf("%s %s/%s: basis %.1f bps, est. APY %.2f%% (%s risk)",
				fo.Symbol, fo.SpotVenue, fo.PerpVenue, fo.NetSpread, fo.EstimatedAPY, fo.RiskLevel))
		break
	}
}

func (o *Orchestrator) notify(ctx context.Context, event, title, message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, event, title, message); err != nil {
		o.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) retain(result domain.ScanResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastResult = &result
	o.lastScanAt = result.Timestamp
	o.lastFunding = result.Funding
}

func (o *Orchestrator) setState(s ScanState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// State returns the current cycle state and, if a cycle has completed, its
// result and timestamp.
func (o *Orchestrator) State() (ScanState, *domain.ScanResult, time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.lastResult, o.lastScanAt
}

// LastFunding returns the funding opportunities from the most recent cycle.
func (o *Orchestrator) LastFunding() []domain.FundingOpportunity {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.FundingOpportunity, len(o.lastFunding))
	copy(out, o.lastFunding)
	return out
}

// RunInterval scans on a fixed ticker until ctx is cancelled. When a
// distributed lock is configured only one process scans per tick; a held
// lock means another instance is covering that tick.
func (o *Orchestrator) RunInterval(ctx context.Context) error {
	if o.cfg.Interval <= 0 {
		return fmt.Errorf("orchestrator: %w: interval must be positive", domain.ErrConfiguration)
	}

	o.logger.InfoContext(ctx, "interval scanning started",
		slog.Duration("interval", o.cfg.Interval),
		slog.Int("symbols", len(o.cfg.Symbols)),
	)

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		o.tick(ctx)
		select {
		case <-ctx.Done():
			o.logger.Info("interval scanning stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	if o.lock != nil {
		unlock, err := o.lock.Acquire(ctx, scanLockKey, o.cfg.Interval)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				o.logger.Debug("scan lock held elsewhere, skipping tick")
			} else {
				o.logger.Warn("scan lock acquire failed", slog.String("error", err.Error()))
			}
			return
		}
		defer unlock()
	}

	if _, err := o.Scan(ctx, ScanRequest{}); err != nil {
		if errors.Is(err, domain.ErrScanInProgress) || errors.Is(err, domain.ErrScanCancelled) {
			return
		}
		o.logger.Error("interval scan failed", slog.String("error", err.Error()))
	}
}
