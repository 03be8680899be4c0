// Package uowmock provides a function-backed uow.UnitOfWork for usecase tests.
package uowmock

import (
	"context"
	"errors"

	"finagent/internal/domain/loan"
	"finagent/internal/domain/uow"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW calls the matching Fn field, or returns errUnimplemented when it is nil.
type UoW struct {
	AtomicFn   func(ctx context.Context, fn func(r uow.Repos) error) error
	LockLoanFn func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error
}

// Passthrough hands repos straight to every callback without a transaction.
// LockLoan resolves the loan through repos.Loans.GetByLoanIDForUpdate, so a
// loanmock can steer the not-found path.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		AtomicFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(repos) },
		LockLoanFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Loan) error) error {
			l, err := repos.Loans.GetByLoanIDForUpdate(ctx, loanID)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
	}
}

func (m *UoW) Atomic(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.AtomicFn == nil {
		return errUnimplemented
	}
	return m.AtomicFn(ctx, fn)
}

func (m *UoW) LockLoan(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.LockLoanFn == nil {
		return errUnimplemented
	}
	return m.LockLoanFn(ctx, loanID, fn)
}
