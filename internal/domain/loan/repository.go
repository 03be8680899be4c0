package loan

import (
	"context"
	"time"
)

// Filter narrows List; zero values mean "any".
type Filter struct {
	Decision Decision
	RiskBand RiskBand
	Offset   int
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// Locks the row until the surrounding transaction ends.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	// List returns one page plus the total count matching f.
	List(ctx context.Context, f Filter) ([]Loan, int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Loan, error)
	// Stats aggregates every loan; Today counts those created at or after since.
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

type Stats struct {
	Total          int64
	ByDecision     map[Decision]int64
	ByRiskBand     map[RiskBand]int64
	AvgAmount      float64
	AvgEMI         float64
	AvgCreditScore float64
	Today          int64
}
