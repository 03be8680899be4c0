// Package uow groups loan and sanction writes that must land together.
package uow

import (
	"context"

	"finagent/internal/domain/loan"
	"finagent/internal/domain/sanction"
)

// Repos are bound to the running transaction; they must not escape fn.
type Repos struct {
	Loans     loan.Repository
	Sanctions sanction.Repository
}

type UnitOfWork interface {
	// Atomic commits when fn returns nil and rolls back otherwise.
	Atomic(ctx context.Context, fn func(r Repos) error) error
	// LockLoan loads the loan by its public id with a row lock held for the
	// rest of the transaction. A missing loan returns loan.ErrNotFound and
	// fn is not called.
	LockLoan(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
