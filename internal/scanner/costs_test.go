package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alphayield/arbscan/internal/domain"
)

func newTestCostModel() *CostModel {
	return NewCostModel(CostConfig{
		FeeRate:              0.001,
		SlippageRate:         0.0005,
		WithdrawalFees:       map[string]float64{"ETHUSDT": 5},
		DefaultWithdrawalFee: 10,
		ExecutionThreshold:   5,
	})
}

func TestCostModelApply(t *testing.T) {
	m := newTestCostModel()

	opp := domain.ArbitrageOpportunity{
		Symbol:          "BTCUSDT",
		BuyPrice:        50000,
		SellPrice:       50100,
		Spread:          100,
		EstimatedVolume: 0.1,
		EstimatedProfit: 10,
	}

	priced := m.Apply(opp)

	// trading_fees = (50000 + 50100) * 0.1 * 0.001 = 10.01
	assert.InDelta(t, 10.01, priced.Costs.TradingFees, 1e-9)
	// slippage = 50000 * 0.1 * 0.0005 = 2.5
	assert.InDelta(t, 2.5, priced.Costs.Slippage, 1e-9)
	assert.Equal(t, 10.0, priced.Costs.WithdrawalFee)
	assert.InDelta(t, 22.51, priced.Costs.TotalCost, 1e-9)
	// net = 10 - 22.51 = -12.51: this spread is not worth executing.
	assert.InDelta(t, -12.51, priced.NetProfit, 1e-9)

	// The input is not mutated.
	assert.Zero(t, opp.NetProfit)
	assert.Zero(t, opp.Costs.TotalCost)
}

func TestCostModelWithdrawalFeeLookup(t *testing.T) {
	m := newTestCostModel()

	eth := m.Apply(domain.ArbitrageOpportunity{
		Symbol:          "ETHUSDT",
		BuyPrice:        3000,
		SellPrice:       3030,
		EstimatedVolume: 1,
		EstimatedProfit: 30,
	})
	assert.Equal(t, 5.0, eth.Costs.WithdrawalFee)

	sol := m.Apply(domain.ArbitrageOpportunity{
		Symbol:          "SOLUSDT",
		BuyPrice:        150,
		SellPrice:       152,
		EstimatedVolume: 10,
		EstimatedProfit: 20,
	})
	assert.Equal(t, 10.0, sol.Costs.WithdrawalFee)
}

func TestCostModelRecommend(t *testing.T) {
	m := newTestCostModel()

	assert.Equal(t, domain.RecommendExecute, m.Recommend(5.01))
	assert.Equal(t, domain.RecommendSkip, m.Recommend(5.0)) // threshold itself is not enough
	assert.Equal(t, domain.RecommendSkip, m.Recommend(-1))
}
