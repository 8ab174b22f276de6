package scanner

import (
	"github.com/alphayield/arbscan/internal/domain"
)

// CostConfig holds the tunable parameters of the execution cost model. All
// values are injected from configuration so the model is testable with
// alternate tables without code changes.
type CostConfig struct {
	FeeRate              float64
	SlippageRate         float64
	WithdrawalFees       map[string]float64
	DefaultWithdrawalFee float64
	ExecutionThreshold   float64
}

// CostModel converts a raw spread candidate into a fee-, slippage-, and
// withdrawal-adjusted net profit estimate.
type CostModel struct {
	cfg CostConfig
}

// NewCostModel creates a CostModel.
func NewCostModel(cfg CostConfig) *CostModel {
	return &CostModel{cfg: cfg}
}

// Apply computes the cost breakdown for a candidate and returns a copy with
// Costs and NetProfit populated:
//
//	trading_fees = (buy_price + sell_price) * volume * fee_rate
//	slippage     = buy_price * volume * slippage_rate
//	net_profit   = estimated_profit - (trading_fees + withdrawal_fee + slippage)
func (m *CostModel) Apply(opp domain.ArbitrageOpportunity) domain.ArbitrageOpportunity {
	volume := opp.EstimatedVolume

	tradingFees := (opp.BuyPrice + opp.SellPrice) * volume * m.cfg.FeeRate
	withdrawalFee := m.withdrawalFeeFor(opp.Symbol)
	slippage := opp.BuyPrice * volume * m.cfg.SlippageRate

	opp.Costs = domain.CostBreakdown{
		TradingFees:   tradingFees,
		WithdrawalFee: withdrawalFee,
		Slippage:      slippage,
		TotalCost:     tradingFees + withdrawalFee + slippage,
	}
	opp.NetProfit = opp.EstimatedProfit - opp.Costs.TotalCost
	return opp
}

// Recommend returns EXECUTE when the net profit clears the configured
// execution threshold, SKIP otherwise.
func (m *CostModel) Recommend(netProfit float64) domain.Recommendation {
	if netProfit > m.cfg.ExecutionThreshold {
		return domain.RecommendExecute
	}
	return domain.RecommendSkip
}

func (m *CostModel) withdrawalFeeFor(symbol string) float64 {
	if fee, ok := m.cfg.WithdrawalFees[symbol]; ok {
		return fee
	}
	return m.cfg.DefaultWithdrawalFee
}
