package mysql

import (
	"context"

	"finagent/internal/domain/loan"
	"finagent/internal/domain/sanction"
	"finagent/internal/domain/uow"
	"finagent/internal/domain/user"

	"gorm.io/gorm"
)

var _ uow.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs callbacks inside a gorm transaction.
type UnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) *UnitOfWork { return &UnitOfWork{db: db} }

func (u *UnitOfWork) Atomic(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx))
	})
}

// LockLoan takes SELECT ... FOR UPDATE on the loan row. On sqlite the lock
// clause is dropped and the single connection serialises writers instead.
func (u *UnitOfWork) LockLoan(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := bind(tx)
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func bind(tx *gorm.DB) uow.Repos {
	return uow.Repos{Loans: NewLoanRepository(tx), Sanctions: NewSanctionRepository(tx)}
}

// Models lists every table the repositories in this package touch, in migration order.
func Models() []any {
	return []any{&user.User{}, &loan.Loan{}, &sanction.Sanction{}}
}
