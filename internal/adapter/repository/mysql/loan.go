package mysql

import (
	"context"
	"errors"
	"time"

	loanDomain "finagent/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return loanResult(&out, res.Error)
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return loanResult(&out, res.Error)
}

func (r *LoanRepository) List(ctx context.Context, f loanDomain.Filter) ([]loanDomain.Loan, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.Decision != "" {
			db = db.Where("decision = ?", f.Decision)
		}
		if f.RiskBand != "" {
			db = db.Where("risk_band = ?", f.RiskBand)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&loanDomain.Loan{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Scopes(filter).Order("created_at DESC, id DESC")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []loanDomain.Loan
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *LoanRepository) ListByUser(ctx context.Context, userID string, limit int) ([]loanDomain.Loan, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []loanDomain.Loan
	return out, q.Find(&out).Error
}

func (r *LoanRepository) Stats(ctx context.Context, since time.Time) (*loanDomain.Stats, error) {
	out := &loanDomain.Stats{
		ByDecision: map[loanDomain.Decision]int64{},
		ByRiskBand: map[loanDomain.RiskBand]int64{},
	}
	db := r.db.WithContext(ctx).Model(&loanDomain.Loan{})

	var decisions []struct {
		Decision loanDomain.Decision
		N        int64
	}
	if err := db.Session(&gorm.Session{}).Select("decision, COUNT(*) AS n").Group("decision").Scan(&decisions).Error; err != nil {
		return nil, err
	}
	for _, d := range decisions {
		out.ByDecision[d.Decision] = d.N
		out.Total += d.N
	}

	var bands []struct {
		RiskBand loanDomain.RiskBand
		N        int64
	}
	if err := db.Session(&gorm.Session{}).Select("risk_band, COUNT(*) AS n").Group("risk_band").Scan(&bands).Error; err != nil {
		return nil, err
	}
	for _, b := range bands {
		out.ByRiskBand[b.RiskBand] = b.N
	}

	var avg struct {
		Amount float64
		EMI    float64
		Score  float64
	}
	err := db.Session(&gorm.Session{}).
		Select("COALESCE(AVG(requested_amount), 0) AS amount, COALESCE(AVG(emi), 0) AS emi, COALESCE(AVG(credit_score), 0) AS score").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	out.AvgAmount, out.AvgEMI, out.AvgCreditScore = avg.Amount, avg.EMI, avg.Score

	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", since).Count(&out.Today).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func loanResult(l *loanDomain.Loan, err error) (*loanDomain.Loan, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
