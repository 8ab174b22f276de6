package domain

import "time"

// CostBreakdown itemizes the execution costs applied to a spot opportunity.
type CostBreakdown struct {
	TradingFees   float64 `json:"trading_fees"`
	WithdrawalFee float64 `json:"withdrawal_fee"`
	Slippage      float64 `json:"slippage"`
	TotalCost     float64 `json:"total_cost"`
}

// ArbitrageOpportunity is a spot cross-venue opportunity detected in a single
// scan cycle. It is created fresh each cycle and never mutated afterwards;
// detection is stateless and every cycle re-evaluates from scratch.
type ArbitrageOpportunity struct {
	ID              string        `json:"id"`
	Symbol          string        `json:"symbol"`
	BuyVenue        string        `json:"buy_venue"`
	SellVenue       string        `json:"sell_venue"`
	BuyPrice        float64       `json:"buy_price"`
	SellPrice       float64       `json:"sell_price"`
	Spread          float64       `json:"spread"`
	SpreadPercent   float64       `json:"spread_percent"`
	EstimatedVolume float64       `json:"estimated_volume"`
	EstimatedProfit float64       `json:"estimated_profit"`
	Confidence      float64       `json:"confidence"`
	Costs           CostBreakdown `json:"costs"`
	NetProfit       float64       `json:"net_profit"`
	Timestamp       time.Time     `json:"timestamp"`
}

// FundingDirection indicates which leg is long in a funding-basis trade.
type FundingDirection string

const (
	// DirectionLongSpotShortPerp collects positive funding: basis >= 0.
	DirectionLongSpotShortPerp FundingDirection = "long_spot_short_perp"
	// DirectionShortSpotLongPerp collects negative funding: basis < 0.
	DirectionShortSpotLongPerp FundingDirection = "short_spot_long_perp"
)

// RiskLevel tiers a funding opportunity by how far the current basis sits
// from its rolling mean.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskLevelFromZScore maps |z| to a tier: < 1 low, < 2 medium, >= 2 high.
func RiskLevelFromZScore(z float64) RiskLevel {
	if z < 0 {
		z = -z
	}
	switch {
	case z < 1:
		return RiskLow
	case z < 2:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// FundingOpportunity is a spot/perpetual funding-basis opportunity.
type FundingOpportunity struct {
	ID                    string           `json:"id"`
	Symbol                string           `json:"symbol"`
	SpotVenue             string           `json:"spot_venue"`
	PerpVenue             string           `json:"perp_venue"`
	SpotPrice             float64          `json:"spot_price"`
	PerpPrice             float64          `json:"perp_price"`
	FundingRate           float64          `json:"funding_rate"`
	FundingRateAnnualized float64          `json:"funding_rate_annualized"`
	NextFundingTime       time.Time        `json:"next_funding_time"`
	Direction             FundingDirection `json:"direction"`
	EstimatedAPY          float64          `json:"estimated_apy"`
	RiskLevel             RiskLevel        `json:"risk_level"`
	NetSpread             float64          `json:"net_spread"`
	IsActionable          bool             `json:"is_actionable"`
	Timestamp             time.Time        `json:"timestamp"`
}

// Recommendation is the analyze verdict for a single candidate.
type Recommendation string

const (
	RecommendExecute Recommendation = "EXECUTE"
	RecommendSkip    Recommendation = "SKIP"
)

// ScanResult is the outcome of one full scan cycle.
type ScanResult struct {
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	Funding       []FundingOpportunity   `json:"funding_opportunities"`
	Scanned       int                    `json:"scanned"`
	Found         int                    `json:"found"`
	Failures      int                    `json:"failures"`
	Timestamp     time.Time              `json:"timestamp"`
}

// VenueStatus reports one venue's availability for the status endpoint.
type VenueStatus struct {
	Enabled    bool `json:"enabled"`
	Configured bool `json:"configured"`
}

// EngineStatus summarizes the scanner's configuration for collaborators.
type EngineStatus struct {
	Venues           map[string]VenueStatus `json:"venues"`
	SupportedSymbols []string               `json:"supported_symbols"`
	Mode             string                 `json:"mode"`
}
