package sanction

import "context"

type Repository interface {
	// DB uniqueness ensures at most one sanction per loan
	Create(ctx context.Context, s *Sanction) error

	GetByLoanID(ctx context.Context, loanID uint64) (*Sanction, error)
}
