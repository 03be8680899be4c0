package mysql

import (
	"context"
	"errors"

	sanctionDomain "finagent/internal/domain/sanction"

	"gorm.io/gorm"
)

type SanctionRepository struct{ db *gorm.DB }

func NewSanctionRepository(db *gorm.DB) *SanctionRepository { return &SanctionRepository{db: db} }

func (r *SanctionRepository) Create(ctx context.Context, s *sanctionDomain.Sanction) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SanctionRepository) GetByLoanID(ctx context.Context, loanNumericID uint64) (*sanctionDomain.Sanction, error) {
	var out sanctionDomain.Sanction
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, sanctionDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}
