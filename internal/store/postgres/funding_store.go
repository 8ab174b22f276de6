package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alphayield/arbscan/internal/domain"
)

// FundingStore implements domain.FundingOpportunityStore using PostgreSQL.
type FundingStore struct {
	pool *pgxpool.Pool
}

// NewFundingStore creates a new FundingStore backed by the given pool.
func NewFundingStore(pool *pgxpool.Pool) *FundingStore {
	return &FundingStore{pool: pool}
}

const fundingSelectCols = `id, symbol, spot_venue, perp_venue,
	spot_price, perp_price, funding_rate, funding_rate_annualized,
	next_funding_time, direction, estimated_apy, risk_level,
	net_spread, is_actionable, detected_at`

// Insert stores a new funding-basis opportunity.
func (s *FundingStore) Insert(ctx context.Context, opp domain.FundingOpportunity) error {
	const query = `
		INSERT INTO funding_opportunities (
			id, symbol, spot_venue, perp_venue,
			spot_price, perp_price, funding_rate, funding_rate_annualized,
			next_funding_time, direction, estimated_apy, risk_level,
			net_spread, is_actionable, detected_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Symbol, opp.SpotVenue, opp.PerpVenue,
		opp.SpotPrice, opp.PerpPrice, opp.FundingRate, opp.FundingRateAnnualized,
		opp.NextFundingTime, string(opp.Direction), opp.EstimatedAPY, string(opp.RiskLevel),
		opp.NetSpread, opp.IsActionable, opp.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert funding opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recent funding opportunities ordered by
// detection time. An empty symbol matches all symbols.
func (s *FundingStore) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.FundingOpportunity, error) {
	query := `SELECT ` + fundingSelectCols + ` FROM funding_opportunities`
	args := []any{}

	if symbol != "" {
		query += " WHERE symbol = $1"
		args = append(args, symbol)
	}
	query += " ORDER BY detected_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent funding opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.FundingOpportunity
	for rows.Next() {
		var opp domain.FundingOpportunity
		var direction, riskLevel string
		if err := rows.Scan(
			&opp.ID, &opp.Symbol, &opp.SpotVenue, &opp.PerpVenue,
			&opp.SpotPrice, &opp.PerpPrice, &opp.FundingRate, &opp.FundingRateAnnualized,
			&opp.NextFundingTime, &direction, &opp.EstimatedAPY, &riskLevel,
			&opp.NetSpread, &opp.IsActionable, &opp.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan funding opportunity: %w", err)
		}
		opp.Direction = domain.FundingDirection(direction)
		opp.RiskLevel = domain.RiskLevel(riskLevel)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: funding opportunity rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.FundingOpportunityStore = (*FundingStore)(nil)
