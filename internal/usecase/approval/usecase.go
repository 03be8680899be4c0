package approval

import (
	"context"
	"errors"
	"math"
	"time"

	domainLoan "finagent/internal/domain/loan"
	domainSanction "finagent/internal/domain/sanction"
	"finagent/internal/domain/uow"
	"finagent/pkg/finmath"
	"finagent/pkg/id"
)

var ErrNoUnitOfWork = errors.New("approval: unit of work not configured")

type Usecase struct {
	uow uow.UnitOfWork
	now func() time.Time
}

func NewUsecase(tx uow.UnitOfWork) *Usecase {
	return &Usecase{uow: tx, now: func() time.Time { return time.Now().UTC() }}
}

// Record stores a decided application. Approved and adjusted loans get their
// sanction in the same transaction.
func (u *Usecase) Record(ctx context.Context, in RecordInput) (*DecisionDTO, error) {
	if u.uow == nil {
		return nil, ErrNoUnitOfWork
	}
	if err := finmath.ValidateLoanRequest(in.RequestedAmount, in.RequestedTenure); err != nil {
		return nil, err
	}

	var emi float64
	if in.Decision.Sanctionable() {
		var err error
		emi, err = finmath.CalculateEMI(in.ApprovedAmount, in.InterestRate, in.TenureMonths, finmath.RoundPaise)
		if err != nil {
			return nil, err
		}
	}

	var out *DecisionDTO
	err := u.uow.Atomic(ctx, func(r uow.Repos) error {
		l := &domainLoan.Loan{
			LoanID:                id.NewDocID(),
			UserID:                in.UserID,
			FullName:              in.FullName,
			RequestedAmount:       in.RequestedAmount,
			RequestedTenureMonths: in.RequestedTenure,
			ApprovedAmount:        in.ApprovedAmount,
			TenureMonths:          in.TenureMonths,
			EMI:                   emi,
			InterestRate:          in.InterestRate,
			CreditScore:           in.CreditScore,
			FOIR:                  foir(in.ExistingEMI+emi, in.MonthlyIncome),
			Decision:              in.Decision,
			RiskBand:              in.RiskBand,
			Explanation:           in.Explanation,
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		out = &DecisionDTO{LoanID: l.LoanID, Decision: l.Decision, EMI: l.EMI, FOIR: l.FOIR}

		if !l.Decision.Sanctionable() {
			return nil
		}
		s := u.newSanction(l)
		if err := r.Sanctions.Create(ctx, s); err != nil {
			return err
		}
		out.SanctionID = s.SanctionID
		out.SanctionedAt = &s.SanctionedAt
		out.ValidUntil = &s.ValidUntil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sanction returns the loan's sanction, issuing one if the loan is
// sanctionable and has none yet.
func (u *Usecase) Sanction(ctx context.Context, loanID string) (*SanctionDTO, error) {
	if u.uow == nil {
		return nil, ErrNoUnitOfWork
	}
	var out *SanctionDTO

	err := u.uow.LockLoan(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if !l.Decision.Sanctionable() {
			return domainLoan.ErrNotSanctionable
		}

		s, err := r.Sanctions.GetByLoanID(ctx, l.ID)
		switch {
		case errors.Is(err, domainSanction.ErrNotFound):
			s = u.newSanction(l)
			if err := r.Sanctions.Create(ctx, s); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		out = &SanctionDTO{
			SanctionID:   s.SanctionID,
			LoanID:       l.LoanID,
			FullName:     l.FullName,
			Amount:       l.ApprovedAmount,
			TenureMonths: l.TenureMonths,
			InterestRate: l.InterestRate,
			EMI:          l.EMI,
			RiskBand:     string(l.RiskBand),
			SanctionedAt: s.SanctionedAt,
			ValidUntil:   s.ValidUntil,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) newSanction(l *domainLoan.Loan) *domainSanction.Sanction {
	now := u.now()
	return &domainSanction.Sanction{
		SanctionID:   id.NewID32(),
		LoanID:       l.ID,
		SanctionedAt: now,
		ValidUntil:   now.AddDate(0, 0, domainSanction.ValidityDays),
	}
}

// foir is the fixed-obligation-to-income ratio, rounded to four places.
func foir(obligations, income float64) float64 {
	if income <= 0 {
		return 0
	}
	return math.Round(obligations/income*10000) / 10000
}
