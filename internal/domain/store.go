package domain

import (
	"context"
	"time"
)

// OpportunityStore persists spot opportunity history.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]ArbitrageOpportunity, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]ArbitrageOpportunity, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FundingOpportunityStore persists funding-basis opportunity history.
type FundingOpportunityStore interface {
	Insert(ctx context.Context, opp FundingOpportunity) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]FundingOpportunity, error)
}
