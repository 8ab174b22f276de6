package scanner

import (
	"math"
	"sort"

	"github.com/alphayield/arbscan/internal/domain"
)

// RankSpot drops candidates whose net profit is zero or negative and sorts
// the survivors by net profit descending.
func RankSpot(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	ranked := make([]domain.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		if opp.NetProfit <= 0 {
			continue
		}
		ranked = append(ranked, opp)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].NetProfit > ranked[j].NetProfit
	})
	return ranked
}

// RankFunding sorts funding opportunities by absolute estimated APY
// descending; negative funding is tradeable in the opposite direction, so
// magnitude is what ranks. The funding list stays separate from the spot list
// because the two have different risk and duration profiles.
func RankFunding(opps []domain.FundingOpportunity) []domain.FundingOpportunity {
	ranked := make([]domain.FundingOpportunity, len(opps))
	copy(ranked, opps)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].EstimatedAPY) > math.Abs(ranked[j].EstimatedAPY)
	})
	return ranked
}
