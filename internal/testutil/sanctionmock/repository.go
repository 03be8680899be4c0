package sanctionmock

import (
	"context"

	domain "finagent/internal/domain/sanction"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn      func(ctx context.Context, s *domain.Sanction) error
	GetByLoanIDFn func(ctx context.Context, loanNumericID uint64) (*domain.Sanction, error)
}

func (m *Repo) Create(ctx context.Context, s *domain.Sanction) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, s)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanNumericID uint64) (*domain.Sanction, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanNumericID)
	}
	return nil, context.Canceled
}
