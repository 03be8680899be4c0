package loan

import (
	"context"
	"math"
	"time"

	"finagent/internal/domain/loan"
	"finagent/internal/dto"
	"finagent/pkg/finmath"
)

// Usecase serves the read side of loan applications: lookups for the
// customer and the admin dashboard.
type Usecase struct {
	repo loan.Repository
	now  func() time.Time
}

func NewUsecase(r loan.Repository) *Usecase { return &Usecase{repo: r, now: time.Now} }

func (u *Usecase) Get(ctx context.Context, loanID string) (*dto.LoanSummary, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	s := toSummary(l)
	return &s, nil
}

func (u *Usecase) ListByUser(ctx context.Context, userID string, limit int) ([]dto.LoanSummary, error) {
	if limit <= 0 {
		limit = DefaultUserLoansLimit
	}
	rows, err := u.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LoanSummary, 0, len(rows))
	for i := range rows {
		out = append(out, toSummary(&rows[i]))
	}
	return out, nil
}

// AdminMetrics summarises every application. "Today" starts at midnight IST.
func (u *Usecase) AdminMetrics(ctx context.Context) (*dto.AdminMetrics, error) {
	now := u.now().In(finmath.IST)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, finmath.IST)

	st, err := u.repo.Stats(ctx, midnight.UTC())
	if err != nil {
		return nil, err
	}
	risk := make(map[string]int, len(st.ByRiskBand))
	for band, n := range st.ByRiskBand {
		if band != "" {
			risk[string(band)] = int(n)
		}
	}
	return &dto.AdminMetrics{
		TotalApplications: int(st.Total),
		ApprovedCount:     int(st.ByDecision[loan.DecisionApproved]),
		RejectedCount:     int(st.ByDecision[loan.DecisionRejected]),
		AdjustCount:       int(st.ByDecision[loan.DecisionAdjust]),
		AvgLoanAmount:     math.Round(st.AvgAmount*100) / 100,
		AvgEMI:            math.Round(st.AvgEMI*100) / 100,
		AvgCreditScore:    math.Round(st.AvgCreditScore),
		TodayApplications: int(st.Today),
		RiskDistribution:  risk,
	}, nil
}

// AdminLoans returns one page of applications, newest first. Page and size
// are clamped to sane values rather than rejected.
func (u *Usecase) AdminLoans(ctx context.Context, f dto.LoanFilter) (*dto.AdminLoansResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize < 1:
		f.PageSize = DefaultPageSize
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}

	rows, total, err := u.repo.List(ctx, loan.Filter{
		Decision: loan.Decision(f.Decision),
		RiskBand: loan.RiskBand(f.RiskBand),
		Offset:   (f.Page - 1) * f.PageSize,
		Limit:    f.PageSize,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.LoanListItem, 0, len(rows))
	for i := range rows {
		items = append(items, toListItem(&rows[i]))
	}
	return &dto.AdminLoansResponse{Loans: items, Total: int(total), Page: f.Page, PageSize: f.PageSize}, nil
}
